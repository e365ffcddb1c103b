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

package protocol

import (
	"sync"
	"time"

	"github.com/nabbar/siwire/errs"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/queue"
	"github.com/nabbar/siwire/scheduler"
)

// Impl is implemented by each concrete transport (file, mem, pipe, tcp,
// cloud): the four abstract hooks the base's write path and lifecycle call
// into under its lock (§4.2).
type Impl interface {
	InternalConnect() error
	InternalWritePacket(p *packet.Packet) error
	InternalDisconnect() error
	InternalDispatch(state interface{}) error
}

// Reconnector is optionally implemented by a concrete transport that needs
// custom reconnect semantics (the cloud protocol's reconnect_allowed
// short-circuit, §4.5). When absent, the base reconnects through
// InternalConnect (§4.2 "Reconnect").
type Reconnector interface {
	InternalReconnect() error
}

// ErrorListener receives every error surfaced in async mode, where there is
// no caller left to return it to (§4.2 step 6).
type ErrorListener func(err error)

// Base implements the protocol base: option-driven lifecycle, the sync
// write-path algorithm (§4.2), and the scheduler.Protocol surface so it can
// also run as an async producer.
type Base struct {
	Name string // protocol name, for diagnostics (NewProtocol errors)

	opts      Options
	impl      Impl
	tcpFamily bool
	log       siplog.Logger
	onError   ErrorListener

	mu            sync.Mutex
	connected     bool
	failed        bool
	initialized   bool
	reconnectTick time.Time

	backlog *queue.PacketQueue
	sched   *scheduler.Scheduler
}

// NewBase builds a Base for impl with the parsed Options. tcpFamily marks
// transports that participate in requeue-on-failure and the 1-deep staging
// buffer (§4.1); only tcp and cloud set it.
func NewBase(name string, impl Impl, opts Options, tcpFamily bool, log siplog.Logger, onError ErrorListener) *Base {
	if log == nil {
		log = siplog.Default()
	}
	b := &Base{
		Name:      name,
		opts:      opts,
		impl:      impl,
		tcpFamily: tcpFamily,
		log:       log,
		onError:   onError,
		backlog:   queue.NewPacketQueue(),
	}
	if opts.AsyncEnabled {
		b.sched = scheduler.New(&schedAdapter{b: b}, opts.AsyncQueue, opts.AsyncThrottle, log)
	}
	return b
}

// schedAdapter implements scheduler.Protocol with the raw, lock-acquiring
// operations the worker goroutine calls directly. It exists separately from
// Base's own Connect/Disconnect/Dispatch because those dispatch between
// sync and async and would otherwise just re-enqueue onto the same
// scheduler that is calling them.
type schedAdapter struct{ b *Base }

func (a *schedAdapter) Connect() error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	return a.b.connectLocked()
}

func (a *schedAdapter) WritePacket(p queue.Sized) error {
	sw := p.(scheduledWrite)
	return a.b.forward(sw.pkt, sw.disconnect)
}

// scheduledWrite carries a queued WRITE_PACKET command's per-call disconnect
// decision alongside the packet, so the scheduler worker can replay it
// exactly as forwardOrSchedule decided it (mirroring protocol.py's
// __forward_packet(packet, disconnect) signature, §4.2 step 5 / §4.1
// "Requeue-on-failure": a requeued command must retry with the same
// disconnect decision it was enqueued with).
type scheduledWrite struct {
	pkt        *packet.Packet
	disconnect bool
}

func (s scheduledWrite) Size() int { return s.pkt.Size() }

func (a *schedAdapter) Disconnect() error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	return a.b.disconnectLocked()
}

func (a *schedAdapter) DispatchState(state interface{}) error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	return a.b.impl.InternalDispatch(state)
}

func (a *schedAdapter) TCPFamily() bool { return a.b.tcpFamily }
func (a *schedAdapter) Failed() bool    { return a.b.Failed() }

// ReconnectAllowed forwards the concrete transport's scheduler.ReconnectGate
// (the cloud protocol's); transports without one always allow requeue.
func (a *schedAdapter) ReconnectAllowed() bool {
	if g, ok := a.b.impl.(scheduler.ReconnectGate); ok {
		return g.ReconnectAllowed()
	}
	return true
}

// Options returns the parsed option set.
func (b *Base) Options() Options { return b.opts }

// Start brings the protocol up: launches the scheduler worker if async.
func (b *Base) Start() {
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	if b.sched != nil {
		b.sched.Start()
	}
}

// Connect runs internal_connect directly (sync) or enqueues a CONNECT
// command (async), per §4.2's "uniform public surface".
func (b *Base) Connect() error {
	if b.sched != nil {
		b.sched.Enqueue(queue.Command{Kind: queue.Connect})
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked()
}

// Disconnect runs internal_disconnect directly (sync) or enqueues a
// DISCONNECT command (async). When async.clearondisconnect is set, the
// scheduler's queue is cleared first (§5 "Cancellation and shutdown").
func (b *Base) Disconnect() error {
	if b.sched != nil {
		if b.opts.AsyncClearOnDisconnect {
			b.sched.ClearQueue()
		}
		b.sched.Enqueue(queue.Command{Kind: queue.Disconnect})
		b.sched.Stop()
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disconnectLocked()
}

// Dispatch runs internal_dispatch directly (sync) or enqueues a DISPATCH
// command (async) carrying state.
func (b *Base) Dispatch(state interface{}) error {
	if b.sched != nil {
		b.sched.Enqueue(queue.Command{Kind: queue.Dispatch, DispatchState: state})
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.impl.InternalDispatch(state)
}

// Submit runs the full sync write-path algorithm (§4.2 steps 1-6): the level
// gate, the backlog push-or-drain decision, then forwarding (directly for
// sync protocols, through the scheduler for async ones).
func (b *Base) Submit(p *packet.Packet) error {
	b.mu.Lock()

	if p.Level < b.opts.Level {
		b.mu.Unlock()
		return nil
	}
	if !b.connected && !b.opts.Reconnect && b.opts.KeepOpen() {
		b.mu.Unlock()
		return nil
	}
	if b.opts.BacklogEnabled && p.Level < b.opts.BacklogFlushOn && p.Level != level.Control {
		b.backlog.Push(p, int(b.opts.BacklogQueue))
		b.mu.Unlock()
		return nil
	}

	var flush []queue.Sized
	if b.opts.BacklogEnabled {
		flush = b.backlog.Drain()
	}
	b.mu.Unlock()

	// Backlog-drained packets are always forwarded with disconnect=false
	// (mirroring __flush_queue's "self.__forward_packet(packet, False)");
	// only the live packet that triggered the flush (or the ordinary
	// non-backlog path) disconnects per !KeepOpen() (§8 scenario 4).
	for _, fp := range flush {
		if err := b.forwardOrSchedule(fp.(*packet.Packet), false); err != nil {
			return err
		}
	}
	return b.forwardOrSchedule(p, !b.opts.KeepOpen())
}

func (b *Base) forwardOrSchedule(p *packet.Packet, disconnect bool) error {
	if b.sched != nil {
		b.sched.Enqueue(queue.Command{Kind: queue.WritePacket, Packet: scheduledWrite{pkt: p, disconnect: disconnect}})
		return nil
	}
	return b.forward(p, disconnect)
}

// forward implements §4.2 step 5: connect-if-needed, write under the
// packet's own lock, then disconnect iff the caller's disconnect decision
// says to (false for backlog-flushed packets, !KeepOpen() for the live one).
func (b *Base) forward(p *packet.Packet, disconnect bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		var err error
		if !b.opts.KeepOpen() {
			err = b.connectLocked()
		} else {
			err = b.reconnectLocked()
		}
		if err != nil {
			b.resetLocked()
			b.reportError(err)
			return err
		}
	}

	p.Lock()
	err := b.impl.InternalWritePacket(p)
	p.Unlock()

	if err != nil {
		b.resetLocked()
		b.reportError(err)
		return err
	}

	if disconnect {
		if dErr := b.disconnectLocked(); dErr != nil {
			b.reportError(dErr)
		}
	}
	return nil
}

func (b *Base) connectLocked() error {
	err := b.impl.InternalConnect()
	if err != nil {
		b.failed = true
		return errs.NewProtocol(b.Name, "connect failed", err)
	}
	b.connected = true
	b.failed = false
	return nil
}

func (b *Base) disconnectLocked() error {
	err := b.impl.InternalDisconnect()
	b.connected = false
	if err != nil {
		return errs.NewProtocol(b.Name, "disconnect failed", err)
	}
	return nil
}

// reconnectLocked implements §4.2's "Reconnect": respects reconnect.interval,
// delegates to the concrete Reconnector if the protocol implements one
// (cloud's reconnect_allowed short-circuit), else falls back to connecting.
func (b *Base) reconnectLocked() error {
	if b.opts.ReconnectInterval > 0 && time.Since(b.reconnectTick) < b.opts.ReconnectInterval {
		return errs.NewProtocol(b.Name, "reconnect interval not yet elapsed")
	}
	if r, ok := b.impl.(Reconnector); ok {
		err := r.InternalReconnect()
		if err != nil {
			b.failed = true
			return errs.NewProtocol(b.Name, "reconnect failed", err)
		}
		b.connected = true
		b.failed = false
		return nil
	}
	return b.connectLocked()
}

// resetLocked implements §4.2 step 6's reset(): clear the backlog,
// disconnect, and record the reconnect tick.
func (b *Base) resetLocked() {
	b.backlog.Clear()
	_ = b.impl.InternalDisconnect()
	b.connected = false
	b.failed = true
	b.reconnectTick = time.Now()
}

func (b *Base) reportError(err error) {
	if b.onError != nil {
		b.onError(err)
	}
}

// TCPFamily reports whether this protocol participates in requeue-on-failure
// and the 1-deep scheduler staging buffer (§4.1).
func (b *Base) TCPFamily() bool { return b.tcpFamily }

// Failed reports the protocol's current failed state.
func (b *Base) Failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// Connected reports the current connected state under lock.
func (b *Base) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}
