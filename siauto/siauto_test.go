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

package siauto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsMainSessionWithOverrideConnections(t *testing.T) {
	s, err := New(nil, "mem(maxsize=4096)")
	require.NoError(t, err)
	require.NotNil(t, s.Main())
	require.Equal(t, mainSession, s.Main().Name())

	require.NoError(t, s.Deinitialize())
}

func TestDefaultConnectionsPickedByPlatform(t *testing.T) {
	cs := defaultConnections()
	require.Contains(t, []string{windowsConnections, nonWindowsConnections}, cs)
}

func TestProcessWideSingletonIndependentOfDirectInstances(t *testing.T) {
	require.Nil(t, Dispatcher())
	require.Nil(t, Session("whatever"))

	err := Initialize(nil, "mem(maxsize=4096)")
	require.NoError(t, err)
	defer Deinitialize()

	require.NotNil(t, Dispatcher())
	sess := Session(mainSession)
	require.NotNil(t, sess)

	other, err := New(nil, "mem(maxsize=4096)")
	require.NoError(t, err)
	defer other.Deinitialize()
	require.NotSame(t, Dispatcher(), other.Dispatcher(), "Initialize must not share state with an independently built instance")
}
