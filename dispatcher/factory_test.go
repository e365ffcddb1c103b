/*
 * MIT License
 *
 * Copyright (c) 2026 the siwire authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/connstring"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/protocol"
	"github.com/nabbar/siwire/session"
)

func TestBuildFromConnectionsRegistersEachClause(t *testing.T) {
	d := New(nil, session.Defaults{})
	err := d.BuildFromConnections("mem(maxsize=4096),tcp(host=127.0.0.1,port=4228)", nil)
	require.NoError(t, err)

	d.mu.Lock()
	names := make([]string, len(d.protocols))
	for i, np := range d.protocols {
		names[i] = np.name
	}
	d.mu.Unlock()
	require.Equal(t, []string{"mem", "tcp"}, names)
}

func TestBuildFromConnectionsRejectsUnknownOption(t *testing.T) {
	d := New(nil, session.Defaults{})
	err := d.BuildFromConnections("mem(badoption=1)", nil)
	require.Error(t, err, "unknown option for the protocol must be rejected")
}

func TestBuildFromConnectionsFileRequiresFilename(t *testing.T) {
	d := New(nil, session.Defaults{})
	err := d.BuildFromConnections("file()", nil)
	require.Error(t, err)
}

func TestRegisterProtocolBuilderOverride(t *testing.T) {
	called := false
	RegisterProtocolBuilder("mem", func(spec connstring.ProtocolSpec, log siplog.Logger, onError protocol.ErrorListener) (Protocol, error) {
		called = true
		return &fakeProto{}, nil
	})
	defer RegisterProtocolBuilder("mem", buildMem)

	d := New(nil, session.Defaults{})
	require.NoError(t, d.BuildFromConnections("mem()", nil))
	require.True(t, called)
}
