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
	"sync/atomic"
	"testing"

	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/session"
	"github.com/stretchr/testify/require"
)

type fakeProto struct {
	connectCalls    int32
	disconnectCalls int32
	submitted       []*packet.Packet
	submitErr       error
}

func (f *fakeProto) Submit(p *packet.Packet) error {
	f.submitted = append(f.submitted, p)
	return f.submitErr
}
func (f *fakeProto) Connect() error    { atomic.AddInt32(&f.connectCalls, 1); return nil }
func (f *fakeProto) Disconnect() error { atomic.AddInt32(&f.disconnectCalls, 1); return nil }
func (f *fakeProto) Start()            {}

func TestSubmitFansOutAndMarksThreadSafe(t *testing.T) {
	d := New(nil, session.Defaults{})
	a := &fakeProto{}
	b := &fakeProto{}
	d.AddProtocol("a", a)
	d.AddProtocol("b", b)

	p := packet.New(level.Message, &packet.LogEntry{})
	require.NoError(t, d.Submit(p))
	require.Len(t, a.submitted, 1)
	require.Len(t, b.submitted, 1)
	require.True(t, p.ThreadSafe)
}

func TestSubmitVetoedByFilter(t *testing.T) {
	d := New(nil, session.Defaults{})
	a := &fakeProto{}
	d.AddProtocol("a", a)
	d.AddFilterListener(func(p *packet.Packet) bool { return false })

	p := packet.New(level.Message, &packet.LogEntry{})
	require.NoError(t, d.Submit(p))
	require.Empty(t, a.submitted)
}

func TestSetEnabledIdempotent(t *testing.T) {
	d := New(nil, session.Defaults{})
	a := &fakeProto{}
	d.AddProtocol("a", a)

	require.NoError(t, d.SetEnabled(true))
	require.NoError(t, d.SetEnabled(true))
	require.EqualValues(t, 1, a.connectCalls)

	require.NoError(t, d.SetEnabled(false))
	require.NoError(t, d.SetEnabled(false))
	require.EqualValues(t, 1, a.disconnectCalls)
}

func TestDisposeDisconnectsAllAndClearsSessions(t *testing.T) {
	d := New(nil, session.Defaults{})
	a := &fakeProto{}
	b := &fakeProto{}
	d.AddProtocol("a", a)
	d.AddProtocol("b", b)
	d.Sessions().GetOrCreate("main")

	require.NoError(t, d.Dispose())
	require.EqualValues(t, 1, a.disconnectCalls)
	require.EqualValues(t, 1, b.disconnectCalls)
	require.Equal(t, 0, d.Sessions().Count())
}

func TestErrorListenerReceivesProtocolName(t *testing.T) {
	d := New(nil, session.Defaults{})
	var gotProto string
	var gotErr error
	d.AddErrorListener(func(protoName string, err error) {
		gotProto = protoName
		gotErr = err
	})

	reportedErr := errSentinel{}
	d.ReportError("tcp", reportedErr)

	require.Equal(t, "tcp", gotProto)
	require.Equal(t, reportedErr, gotErr)
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }
