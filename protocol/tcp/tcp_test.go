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

package tcp

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/protocol"
)

// fakeServer accepts one connection, sends a banner, reads the client
// banner line, then replies to every framed write with reply.
func fakeServer(t *testing.T, reply []byte) (host string, port int, done chan struct{}) {
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

		_, _ = conn.Write([]byte("siwire test server v1\n"))

		r := bufio.NewReader(conn)
		_, _ = r.ReadString('\n') // client banner

		for {
			hdr := make([]byte, 6)
			if _, err := readAll(r, hdr); err != nil {
				return
			}
			bodyLen := int(hdr[2]) | int(hdr[3])<<8 | int(hdr[4])<<16 | int(hdr[5])<<24
			body := make([]byte, bodyLen)
			if _, err := readAll(r, body); err != nil {
				return
			}
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}()

	return addr.IP.String(), addr.Port, done
}

func readAll(r *bufio.Reader, buf []byte) (int, error) {
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

func TestConnectPerformsServerFirstHandshake(t *testing.T) {
	host, port, done := fakeServer(t, []byte("OK"))
	p := New(Options{Host: host, Port: port, Timeout: 2 * time.Second}, protocol.Options{Level: level.Debug}, nil, nil)

	require.NoError(t, p.InternalConnect())
	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestWritePacketReadsTwoByteReply(t *testing.T) {
	host, port, done := fakeServer(t, []byte("OK"))
	p := New(Options{Host: host, Port: port, Timeout: 2 * time.Second}, protocol.Options{Level: level.Debug}, nil, nil)
	require.NoError(t, p.InternalConnect())

	pkt := packet.New(level.Message, &packet.LogEntry{Title: "hi"})
	require.NoError(t, p.InternalWritePacket(pkt))
	require.NoError(t, p.InternalDisconnect())
	<-done
}

func TestParseOptionsDefaults(t *testing.T) {
	o, err := ParseOptions(lookup.New())
	require.NoError(t, err)
	require.Equal(t, defaultHost, o.Host)
	require.Equal(t, defaultPort, o.Port)
}

func TestDispatchUnsupported(t *testing.T) {
	p := New(Options{}, protocol.Options{}, nil, nil)
	require.Error(t, p.InternalDispatch(nil))
}
