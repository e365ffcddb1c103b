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

package cloud

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/protocol"
)

func TestParseCustomLabels(t *testing.T) {
	pairs := parseCustomLabels(" env = prod ; team=infra ")
	require.Equal(t, []LabelPair{{Name: "env", Value: "prod"}, {Name: "team", Value: "infra"}}, pairs)

	require.Nil(t, parseCustomLabels(""))
	require.Nil(t, parseCustomLabels("noequalsign"))
}

func TestParseCustomLabelsDropsOversizedFields(t *testing.T) {
	long := make([]byte, maxCustomLabelFieldLen+1)
	for i := range long {
		long[i] = 'x'
	}
	pairs := parseCustomLabels("a=" + string(long) + ";ok=1")
	require.Equal(t, []LabelPair{{Name: "ok", Value: "1"}}, pairs)
}

func TestParseCustomLabelsCapsAtFivePairs(t *testing.T) {
	pairs := parseCustomLabels("a=1;b=2;c=3;d=4;e=5;f=6")
	require.Len(t, pairs, maxCustomLabelPairs)
	require.Equal(t, "a", pairs[0].Name)
	require.Equal(t, "e", pairs[4].Name)
}

func TestParseOptionsDefaultsAndClamps(t *testing.T) {
	o, err := ParseOptions(lookup.New())
	require.NoError(t, err)
	require.Equal(t, defaultRegion, o.Region)
	require.Equal(t, defaultPort, o.Port)
	require.Equal(t, int64(defaultChunkMaxSizeKB*1024), o.ChunkMaxSize)
	require.Equal(t, time.Duration(defaultChunkMaxAgeMS)*time.Millisecond, o.ChunkMaxAge)
	require.Equal(t, int64(defaultVFMaxSizeMB*1024*1024), o.MaxSize)
	require.True(t, o.TLSEnabled)
	require.True(t, o.ChunkingEnabled)

	tbl := lookup.New()
	tbl.Put("chunking.maxagems", "10")
	o, err = ParseOptions(tbl)
	require.NoError(t, err)
	require.Equal(t, time.Duration(minChunkMaxAgeMS)*time.Millisecond, o.ChunkMaxAge, "floored at 500ms")

	tbl = lookup.New()
	tbl.Put("chunking.maxsize", "1KB")
	o, err = ParseOptions(tbl)
	require.NoError(t, err)
	require.Equal(t, int64(minChunkMaxSizeKB*1024), o.ChunkMaxSize, "clamped up to 10KB floor")

	tbl = lookup.New()
	tbl.Put("maxsize", "500MB")
	o, err = ParseOptions(tbl)
	require.NoError(t, err)
	require.Equal(t, int64(maxVFMaxSizeMB*1024*1024), o.MaxSize, "clamped down to 50MB ceiling")
}

func TestHostAddressFallsBackToRegion(t *testing.T) {
	p := New(Options{Region: "us-east-1"}, protocol.Options{}, nil, nil)
	require.Equal(t, "packet-receiver.us-east-1.cloud.smartinspect.com:443", p.address())

	p = New(Options{Host: "example.test", Port: 9443}, protocol.Options{}, nil, nil)
	require.Equal(t, "example.test:9443", p.address())
}

func TestParseAnswerTiers(t *testing.T) {
	tier, msg := parseAnswer("OK")
	require.Equal(t, answerOK, tier)
	require.Empty(t, msg)

	tier, msg = parseAnswer("SmartInspectProtocolExceptionWarning - quota low")
	require.Equal(t, answerWarning, tier)
	require.Equal(t, "quota low", msg)

	tier, msg = parseAnswer("SmartInspectProtocolExceptionReconnectAllowed - try again")
	require.Equal(t, answerReconnectAllowed, tier)
	require.Equal(t, "try again", msg)

	tier, msg = parseAnswer("SmartInspectProtocolExceptionReconnectForbidden - quota exceeded")
	require.Equal(t, answerReconnectForbidden, tier)
	require.Equal(t, "quota exceeded", msg)

	tier, msg = parseAnswer("garbage")
	require.Equal(t, answerUnknown, tier)
	require.Equal(t, "garbage", msg)
}

// fakeCloudServer accepts one plaintext connection, reads the client banner
// first (the reversed handshake order, §4.5), sends its own banner, answers
// "OK" to the connect-time LogHeader, then replies to every later
// preface-prefixed write with reply.
func fakeCloudServer(t *testing.T, reply string) (host string, port int, done chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().(*net.TCPAddr)
	done = make(chan struct{})

	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer ln.Close()

		r := bufio.NewReader(conn)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		if _, err := conn.Write([]byte("siwire cloud test server v1\n")); err != nil {
			return
		}

		for first := true; ; first = false {
			preface := make([]byte, 4)
			if _, err := readAllBytes(r, preface); err != nil {
				return
			}
			hdr := make([]byte, 6)
			if _, err := readAllBytes(r, hdr); err != nil {
				return
			}
			bodyLen := int(hdr[2]) | int(hdr[3])<<8 | int(hdr[4])<<16 | int(hdr[5])<<24
			body := make([]byte, bodyLen)
			if _, err := readAllBytes(r, body); err != nil {
				return
			}
			answer := reply
			if first {
				answer = "OK"
			}
			if _, err := conn.Write([]byte(answer + "\n")); err != nil {
				return
			}
		}
	}()

	return addr.IP.String(), addr.Port, done
}

func readAllBytes(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func newTestProtocol(host string, port int) *Protocol {
	opts := Options{
		Host:            host,
		Port:            port,
		TLSEnabled:      false,
		ChunkingEnabled: false,
		MaxSize:         1024 * 1024,
		ChunkMaxAge:     time.Second,
		ChunkMaxSize:    defaultChunkMaxSizeKB * 1024,
	}
	return New(opts, protocol.Options{Level: level.Debug}, nil, nil)
}

func TestConnectPerformsClientFirstHandshake(t *testing.T) {
	host, port, done := fakeCloudServer(t, "OK")
	p := newTestProtocol(host, port)

	require.NoError(t, p.InternalConnect())
	require.NotEmpty(t, p.vfID)
	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestWritePacketOKReply(t *testing.T) {
	host, port, done := fakeCloudServer(t, "OK")
	p := newTestProtocol(host, port)
	require.NoError(t, p.InternalConnect())

	pkt := packet.New(level.Message, &packet.LogEntry{Title: "hi"})
	require.NoError(t, p.InternalWritePacket(pkt))
	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestWritePacketReconnectAllowedSetsError(t *testing.T) {
	host, port, done := fakeCloudServer(t, "SmartInspectProtocolExceptionReconnectAllowed - retry soon")
	p := newTestProtocol(host, port)
	require.NoError(t, p.InternalConnect())

	pkt := packet.New(level.Message, &packet.LogEntry{Title: "hi"})
	err := p.InternalWritePacket(pkt)
	require.Error(t, err)
	e, ok := err.(errs.Error)
	require.True(t, ok)
	require.True(t, e.Has(errs.CloudReconnectAllowed))
	require.True(t, p.ReconnectAllowed(), "allowed tier must not flip the gate")

	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestWritePacketReconnectForbiddenClosesGate(t *testing.T) {
	host, port, done := fakeCloudServer(t, "SmartInspectProtocolExceptionReconnectForbidden - quota exceeded")
	p := newTestProtocol(host, port)
	require.NoError(t, p.InternalConnect())

	pkt := packet.New(level.Message, &packet.LogEntry{Title: "hi"})
	err := p.InternalWritePacket(pkt)
	require.Error(t, err)
	e, ok := err.(errs.Error)
	require.True(t, ok)
	require.True(t, e.Has(errs.CloudReconnectForbidden))
	require.False(t, p.ReconnectAllowed())

	err = p.InternalReconnect()
	require.Error(t, err)
	e, ok = err.(errs.Error)
	require.True(t, ok)
	require.True(t, e.Has(errs.CloudReconnectForbidden))

	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestChunkFlushesWhenSizeLimitReached(t *testing.T) {
	host, port, done := fakeCloudServer(t, "OK")
	opts := Options{
		Host:            host,
		Port:            port,
		ChunkingEnabled: true,
		ChunkMaxSize:    minChunkMaxSizeKB * 1024,
		ChunkMaxAge:     time.Hour,
		MaxSize:         1024 * 1024,
	}
	p := New(opts, protocol.Options{Level: level.Debug}, nil, nil)
	require.NoError(t, p.InternalConnect())

	big := make([]byte, 0, 4096)
	for i := 0; i < 4096; i++ {
		big = append(big, 'x')
	}
	for i := 0; i < 20; i++ {
		pkt := packet.New(level.Message, &packet.LogEntry{Title: "t", Payload: big})
		require.NoError(t, p.InternalWritePacket(pkt))
	}

	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestChunkAgeFlush(t *testing.T) {
	host, port, done := fakeCloudServer(t, "OK")
	opts := Options{
		Host:            host,
		Port:            port,
		ChunkingEnabled: true,
		ChunkMaxSize:    defaultChunkMaxSizeKB * 1024,
		ChunkMaxAge:     minChunkMaxAgeMS * time.Millisecond,
		MaxSize:         1024 * 1024,
	}
	p := New(opts, protocol.Options{Level: level.Debug}, nil, nil)
	require.NoError(t, p.InternalConnect())

	pkt := packet.New(level.Message, &packet.LogEntry{Title: "hi"})
	require.NoError(t, p.InternalWritePacket(pkt))

	time.Sleep(minChunkMaxAgeMS*time.Millisecond + 200*time.Millisecond)

	p.mu.Lock()
	stillOpen := p.chunk != nil && p.chunk.count > 0
	p.mu.Unlock()
	require.False(t, stillOpen, "age flusher must have flushed the lone packet")

	require.NoError(t, p.InternalDisconnect())
	<-done
}

// TestVirtualFileRotatesOnAccumulatedSize guards against vfBytes never being
// incremented: with chunking disabled and a small MaxSize, no single tiny
// packet ever crosses the threshold on its own, but the running total across
// several writes must still trigger a rotation (§4.5 "Virtual file... check
// if its addition would exceed the virtual-file max size").
func TestVirtualFileRotatesOnAccumulatedSize(t *testing.T) {
	host, port, done := fakeCloudServer(t, "OK")
	opts := Options{
		Host:            host,
		Port:            port,
		ChunkingEnabled: false,
		MaxSize:         160,
		ChunkMaxAge:     time.Hour,
		ChunkMaxSize:    defaultChunkMaxSizeKB * 1024,
	}
	p := New(opts, protocol.Options{Level: level.Debug}, nil, nil)
	require.NoError(t, p.InternalConnect())
	firstID := p.vfID

	for i := 0; i < 5; i++ {
		pkt := packet.New(level.Message, &packet.LogEntry{Title: "t"})
		require.NoError(t, p.InternalWritePacket(pkt))
	}

	require.NotEqual(t, firstID, p.vfID, "accumulated packet bytes across several writes must eventually cross maxsize and rotate the virtual file")

	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestDispatchUnsupported(t *testing.T) {
	p := New(Options{}, protocol.Options{}, nil, nil)
	require.Error(t, p.InternalDispatch(nil))
}
