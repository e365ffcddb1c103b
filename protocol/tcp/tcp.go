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

// Package tcp implements C9, the TCP sink (§4.6, tcp_protocol.py): a
// TCP_NODELAY socket, a server-first banner handshake, a framed envelope
// write per packet, and a 2-byte reply read.
package tcp

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/protocol"
	"github.com/nabbar/siwire/wire/binary"
)

const (
	defaultHost    = "127.0.0.1"
	defaultPort    = 4228
	defaultTimeout = 30 * time.Second
	answerSize     = 2
	clientBanner   = "siwire tcp client v1\n"
)

// Options is the TCP protocol's own option surface (§4.6, tcp_protocol.py's
// _is_valid_option: host/port/timeout).
type Options struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// KnownKeys is the extra option surface ParseOptions (protocol package)
// accepts for this protocol.
var KnownKeys = map[string]bool{
	"host":    true,
	"port":    true,
	"timeout": true,
}

// ParseOptions reads the TCP-specific keys out of t.
func ParseOptions(t *lookup.Table) (Options, error) {
	o := Options{
		Host: t.GetString("host", defaultHost),
		Port: t.GetInt("port", defaultPort),
	}
	o.Timeout = time.Duration(t.GetTimespan("timeout", int(defaultTimeout/time.Second))) * time.Millisecond
	return o, nil
}

// Protocol is the TCP sink.
type Protocol struct {
	*protocol.Base

	opts Options
	log  siplog.Logger

	conn net.Conn
	rw   *bufio.ReadWriter
}

// New builds a TCP Protocol. tcpFamily is always true: the base's
// requeue-on-failure and 1-deep staging buffer apply (§4.1).
func New(opts Options, baseOpts protocol.Options, log siplog.Logger, onError protocol.ErrorListener) *Protocol {
	if log == nil {
		log = siplog.Default()
	}
	p := &Protocol{opts: opts, log: log}
	p.Base = protocol.NewBase("tcp", p, baseOpts, true, log, onError)
	return p
}

// InternalConnect dials host:port with TCP_NODELAY, runs the server-first
// banner handshake, and leaves the connection ready for framed writes.
func (p *Protocol) InternalConnect() error {
	addr := fmt.Sprintf("%s:%d", p.opts.Host, p.opts.Port)
	d := net.Dialer{Timeout: p.opts.Timeout}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return errs.NewProtocol("tcp", fmt.Sprintf("connect to %s failed", addr), err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	if p.opts.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(p.opts.Timeout))
	}

	p.conn = conn
	p.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	if err := p.doHandshake(); err != nil {
		_ = conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// doHandshake reads the server banner line, then sends the client banner
// (tcp_protocol.py's _do_handshake: read then send, server-first).
func (p *Protocol) doHandshake() error {
	if _, err := p.rw.ReadString('\n'); err != nil {
		return errs.NewProtocol("tcp", "could not read server banner: connection closed unexpectedly", err)
	}
	if _, err := p.rw.WriteString(clientBanner); err != nil {
		return errs.NewProtocol("tcp", "could not send client banner", err)
	}
	return p.rw.Flush()
}

// InternalWritePacket writes the framed envelope then reads the fixed
// 2-byte server reply (§6.2, §8 scenario 6).
func (p *Protocol) InternalWritePacket(pkt *packet.Packet) error {
	if p.conn == nil {
		return errs.NewProtocol("tcp", "write attempted while disconnected")
	}
	if p.opts.Timeout > 0 {
		_ = p.conn.SetDeadline(time.Now().Add(p.opts.Timeout))
	}

	body, err := binary.Encode(pkt)
	if err != nil {
		return errs.NewProtocol("tcp", "encode failed", err)
	}
	if _, err := p.rw.Write(body); err != nil {
		return errs.NewProtocol("tcp", "write failed", err)
	}
	if err := p.rw.Flush(); err != nil {
		return errs.NewProtocol("tcp", "flush failed", err)
	}

	reply := make([]byte, answerSize)
	n, err := readFull(p.rw, reply)
	if err != nil || n != answerSize {
		return errs.NewProtocol("tcp", "could not read server answer correctly: connection has been closed unexpectedly", err)
	}
	return nil
}

func readFull(r *bufio.ReadWriter, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// InternalDisconnect closes the socket.
func (p *Protocol) InternalDisconnect() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	p.rw = nil
	if err != nil {
		return errs.NewProtocol("tcp", "close failed", err)
	}
	return nil
}

// InternalDispatch is unsupported: dispatch is the memory protocol's
// operation (§4.6).
func (p *Protocol) InternalDispatch(state interface{}) error {
	return errs.New(errs.Configuration, "tcp: dispatch not supported")
}
