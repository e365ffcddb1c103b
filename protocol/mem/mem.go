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

// Package mem implements C8's memory sink (§4.6): packets accumulate in a
// size-bounded queue.PacketQueue and are never written anywhere until
// Dispatch drains them, either to a caller-supplied io.Writer or one packet
// at a time to another protocol's Submit.
package mem

import (
	"io"
	"sync"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/protocol"
	"github.com/nabbar/siwire/queue"
	"github.com/nabbar/siwire/wire/binary"
	"github.com/nabbar/siwire/wire/text"
)

// Options is the memory protocol's own option surface (§4.6).
type Options struct {
	MaxSize int64 // bytes; queue.PacketQueue's drop-oldest limit

	AsText  bool
	Pattern string
	Indent  bool
}

// KnownKeys is the extra option surface ParseOptions (protocol package)
// accepts for this protocol.
var KnownKeys = map[string]bool{
	"maxsize": true,
	"astext":  true,
	"pattern": true,
	"indent":  true,
}

// ParseOptions reads the memory-specific keys out of t.
func ParseOptions(t *lookup.Table) (Options, error) {
	o := Options{}
	o.MaxSize = t.GetSize("maxsize", 2048)
	o.AsText = t.GetBool("astext", false)
	o.Pattern = t.GetString("pattern", "")
	o.Indent = t.GetBool("indent", false)
	return o, nil
}

// Dest is a target, passed as Dispatch's state, that Dispatch drains into one
// packet at a time: any concrete protocol satisfies it through its embedded
// *protocol.Base (§4.6 "to another Protocol").
type Dest interface {
	Submit(p *packet.Packet) error
}

// Protocol is the memory sink.
type Protocol struct {
	*protocol.Base

	opts Options
	log  siplog.Logger
	txt  *text.Formatter

	mu sync.Mutex
	q  *queue.PacketQueue
}

// New builds a memory Protocol.
func New(opts Options, baseOpts protocol.Options, log siplog.Logger, onError protocol.ErrorListener) *Protocol {
	if log == nil {
		log = siplog.Default()
	}
	p := &Protocol{
		opts: opts,
		log:  log,
		q:    queue.NewPacketQueue(),
	}
	if opts.AsText {
		p.txt = text.NewFormatter(opts.Pattern, opts.Indent)
	}
	p.Base = protocol.NewBase("mem", p, baseOpts, false, log, onError)
	return p
}

// InternalConnect is a no-op: the memory sink has no external resource to
// open (§4.6).
func (p *Protocol) InternalConnect() error { return nil }

// InternalWritePacket enqueues pkt, evicting oldest entries if MaxSize is
// exceeded (queue.PacketQueue's push-and-trim semantics).
func (p *Protocol) InternalWritePacket(pkt *packet.Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.q.Push(pkt, int(p.opts.MaxSize))
	return nil
}

// InternalDisconnect clears the in-memory queue (§4.6: the queue is owned
// exclusively by this protocol and is not persisted).
func (p *Protocol) InternalDisconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.q.Clear()
	return nil
}

// InternalDispatch implements the two dump modes §4.6 describes: state is
// either an io.Writer (dump the whole queue with the appropriate magic
// header, formatted packet by packet) or a Dest (hand packets one at a time
// to another protocol's Submit, draining this queue in FIFO order).
func (p *Protocol) InternalDispatch(state interface{}) error {
	p.mu.Lock()
	drained := p.q.Drain()
	p.mu.Unlock()

	switch dst := state.(type) {
	case io.Writer:
		return p.dumpToWriter(dst, drained)
	case Dest:
		return p.dumpToDest(dst, drained)
	default:
		return errs.New(errs.Configuration, "mem: dispatch requires an io.Writer or a Dest")
	}
}

func (p *Protocol) dumpToWriter(w io.Writer, items []queue.Sized) error {
	var header []byte
	if p.opts.AsText {
		header = []byte("\xEF\xBB\xBF")
	} else {
		header = []byte("SILF")
	}
	if _, err := w.Write(header); err != nil {
		return errs.NewProtocol("mem", "dispatch write failed", err)
	}

	for _, item := range items {
		pkt := item.(*packet.Packet)
		body, err := p.encode(pkt)
		if err != nil {
			return errs.NewProtocol("mem", "dispatch encode failed", err)
		}
		if len(body) == 0 {
			continue
		}
		if _, err := w.Write(body); err != nil {
			return errs.NewProtocol("mem", "dispatch write failed", err)
		}
	}
	return nil
}

func (p *Protocol) dumpToDest(dst Dest, items []queue.Sized) error {
	for _, item := range items {
		if err := dst.Submit(item.(*packet.Packet)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Protocol) encode(pkt *packet.Packet) ([]byte, error) {
	if p.opts.AsText {
		return p.txt.Compile(pkt), nil
	}
	return binary.Encode(pkt)
}
