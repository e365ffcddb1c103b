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

// Package pipe implements the Windows named-pipe sink (§4.6,
// pipe_protocol.py): opens \\.\pipe\<name>, performs the same server-first
// banner handshake as the TCP protocol, then writes framed envelopes.
// Like the original, which checks platform.system() at _internal_connect
// time and raises, this is enforced at runtime here: the package builds on
// every GOOS, but InternalConnect refuses to run anywhere but windows,
// matching the runtime guard pipe_protocol.py itself uses rather than a
// build-tag split.
package pipe

import (
	"bufio"
	"os"
	"runtime"
	"sync"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/protocol"
	"github.com/nabbar/siwire/wire/binary"
)

const (
	pipeNamePrefix  = `\\.\pipe\`
	defaultPipeName = "smartinspect"
	clientBanner    = "siwire pipe client v1\n"
)

// Options is the pipe protocol's own option surface (§4.6,
// pipe_protocol.py's _is_valid_option: "pipename").
type Options struct {
	PipeName string
}

// KnownKeys is the extra option surface ParseOptions (protocol package)
// accepts for this protocol.
var KnownKeys = map[string]bool{
	"pipename": true,
}

// ParseOptions reads the pipe-specific keys out of t.
func ParseOptions(t *lookup.Table) (Options, error) {
	return Options{PipeName: t.GetString("pipename", defaultPipeName)}, nil
}

// Protocol is the named-pipe sink.
type Protocol struct {
	*protocol.Base

	opts Options
	log  siplog.Logger

	mu sync.Mutex
	fh *os.File
	rw *bufio.ReadWriter
}

// New builds a pipe Protocol.
func New(opts Options, baseOpts protocol.Options, log siplog.Logger, onError protocol.ErrorListener) *Protocol {
	if log == nil {
		log = siplog.Default()
	}
	p := &Protocol{opts: opts, log: log}
	p.Base = protocol.NewBase("pipe", p, baseOpts, false, log, onError)
	return p
}

// InternalConnect opens the named pipe and runs the server-first banner
// handshake.
func (p *Protocol) InternalConnect() error {
	if runtime.GOOS != "windows" {
		return errs.NewProtocol("pipe", "pipe protocol is only supported on Windows")
	}

	name := pipeNamePrefix + p.opts.PipeName
	fh, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return errs.NewProtocol("pipe", "there was a connection error: check if pipe "+name+" exists", err)
	}

	p.mu.Lock()
	p.fh = fh
	p.rw = bufio.NewReadWriter(bufio.NewReader(fh), bufio.NewWriter(fh))
	p.mu.Unlock()

	if err := p.doHandshake(); err != nil {
		_ = fh.Close()
		p.mu.Lock()
		p.fh, p.rw = nil, nil
		p.mu.Unlock()
		return err
	}
	return nil
}

// doHandshake reads the server banner line, then sends the client banner —
// the same order the TCP protocol uses (pipe_protocol.py's _do_handshake).
func (p *Protocol) doHandshake() error {
	if _, err := p.rw.ReadString('\n'); err != nil {
		return errs.NewProtocol("pipe", "could not read server banner: connection closed unexpectedly", err)
	}
	if _, err := p.rw.WriteString(clientBanner); err != nil {
		return errs.NewProtocol("pipe", "could not send client banner", err)
	}
	return p.rw.Flush()
}

// InternalWritePacket writes the framed envelope and flushes; unlike TCP,
// the pipe protocol does not wait for a per-packet reply
// (pipe_protocol.py's _internal_write_packet never reads an answer).
func (p *Protocol) InternalWritePacket(pkt *packet.Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rw == nil {
		return errs.NewProtocol("pipe", "write attempted while disconnected")
	}

	body, err := binary.Encode(pkt)
	if err != nil {
		return errs.NewProtocol("pipe", "encode failed", err)
	}
	if _, err := p.rw.Write(body); err != nil {
		return errs.NewProtocol("pipe", "write failed", err)
	}
	return p.rw.Flush()
}

// InternalDisconnect closes the pipe handle.
func (p *Protocol) InternalDisconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fh == nil {
		return nil
	}
	err := p.fh.Close()
	p.fh, p.rw = nil, nil
	if err != nil {
		return errs.NewProtocol("pipe", "close failed", err)
	}
	return nil
}

// InternalDispatch is unsupported: dispatch is the memory protocol's
// operation (§4.6).
func (p *Protocol) InternalDispatch(state interface{}) error {
	return errs.New(errs.Configuration, "pipe: dispatch not supported")
}
