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

package connstring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTwoProtocols(t *testing.T) {
	specs, err := Parse(`file(filename="log.sil", append=true), mem(astext=true)`, nil)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	require.Equal(t, "file", specs[0].Name)
	require.Equal(t, "log.sil", specs[0].Options.GetString("filename", ""))
	require.Equal(t, "true", specs[0].Options.GetString("append", ""))

	require.Equal(t, "mem", specs[1].Name)
	require.Equal(t, "true", specs[1].Options.GetString("astext", ""))
}

func TestParseUnknownProtocol(t *testing.T) {
	_, err := Parse("bogus(foo=bar)", nil)
	require.Error(t, err)
}

func TestParseQuotedCommaAndEscapedQuote(t *testing.T) {
	specs, err := Parse(`tcp(caption="a, b ""c""")`, nil)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, `a, b "c"`, specs[0].Options.GetString("caption", ""))
}

func TestParseUnbalancedParens(t *testing.T) {
	_, err := Parse("tcp(host=localhost", nil)
	require.Error(t, err)
}

func TestParseListenerCalledOncePerClause(t *testing.T) {
	called := 0
	_, err := Parse("tcp(host=localhost)", nil, func(spec ProtocolSpec) error {
		called++
		require.Equal(t, "tcp", spec.Name)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, called)
}
