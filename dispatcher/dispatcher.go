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

// Package dispatcher implements C12, the top-level fan-out point: it owns
// the list of Protocols built from a connection string, the filter and error
// listener sets, and the session registry (§3 "Ownership and lifecycle",
// §5 "Cancellation and shutdown").
package dispatcher

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/packet"
	"github.com/nabbar/siwire/session"
)

// Protocol is the subset of protocol.Base's surface the dispatcher drives:
// every concrete transport satisfies it by embedding *protocol.Base.
type Protocol interface {
	Submit(p *packet.Packet) error
	Connect() error
	Disconnect() error
	Start()
}

// FilterListener inspects a packet before it is fanned out and may veto
// delivery by returning false (§2 "the dispatcher consults registered
// filter listeners"; "Listener sets" design note).
type FilterListener func(p *packet.Packet) bool

// ErrorListener receives a named protocol's error, mirroring the per-protocol
// ErrorListener but carrying the protocol name for the dispatcher-level
// aggregate handler (§7 "delivered through the error event handlers
// registered on the Protocol and on the Dispatcher").
type ErrorListener func(protoName string, err error)

type namedProtocol struct {
	name  string
	proto Protocol
}

// Dispatcher fans packets out to every configured Protocol and owns the
// session registry.
type Dispatcher struct {
	log siplog.Logger

	mu        sync.Mutex
	protocols []namedProtocol
	filters   []FilterListener
	errors    []ErrorListener
	enabled   bool

	sessions *session.Registry

	watchMu   sync.Mutex
	watchStop chan struct{}
}

// New builds an empty Dispatcher. Sessions created through Sessions() use d
// defaults.
func New(log siplog.Logger, sessionDefaults session.Defaults) *Dispatcher {
	if log == nil {
		log = siplog.Default()
	}
	d := &Dispatcher{log: log}
	d.sessions = session.NewRegistry(d, sessionDefaults)
	return d
}

// Sessions returns the dispatcher-owned session registry (§3 "Session",
// C13).
func (d *Dispatcher) Sessions() *session.Registry { return d.sessions }

// AddProtocol registers a constructed Protocol under name, for diagnostics
// and for Dispose's errgroup fan-out.
func (d *Dispatcher) AddProtocol(name string, p Protocol) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protocols = append(d.protocols, namedProtocol{name: name, proto: p})
}

// AddFilterListener registers f; filters run in registration order and any
// veto (false) drops the packet before it reaches any protocol.
func (d *Dispatcher) AddFilterListener(f FilterListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filters = append(d.filters, f)
}

// AddErrorListener registers f, invoked whenever a protocol reports an error
// asynchronously (this dispatcher wires itself as each protocol's error
// listener and re-dispatches here with the protocol's name attached).
func (d *Dispatcher) AddErrorListener(f ErrorListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, f)
}

// ReportError fans a protocol-sourced error out to every registered
// ErrorListener; concrete protocol constructors pass a closure over this as
// their onError hook.
func (d *Dispatcher) ReportError(protoName string, err error) {
	d.mu.Lock()
	listeners := make([]ErrorListener, len(d.errors))
	copy(listeners, d.errors)
	d.mu.Unlock()

	for _, l := range listeners {
		l(protoName, err)
	}
}

// SetEnabled brings every protocol up or down. It is idempotent: calling it
// twice with the same value without an intervening opposite call has the
// same observable effect as calling it once (§8 "Idempotence").
func (d *Dispatcher) SetEnabled(enabled bool) error {
	d.mu.Lock()
	if d.enabled == enabled {
		d.mu.Unlock()
		return nil
	}
	d.enabled = enabled
	protos := make([]namedProtocol, len(d.protocols))
	copy(protos, d.protocols)
	d.mu.Unlock()

	var firstErr error
	for _, np := range protos {
		var err error
		if enabled {
			np.proto.Start()
			err = np.proto.Connect()
		} else {
			err = np.proto.Disconnect()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Submit consults every registered filter (any veto drops the packet) then
// forwards to every configured Protocol. When more than one protocol is
// configured, the packet is marked thread-safe so concurrent async workers
// reading it do not race (§3 "threadsafe flag").
func (d *Dispatcher) Submit(p *packet.Packet) error {
	d.mu.Lock()
	filters := make([]FilterListener, len(d.filters))
	copy(filters, d.filters)
	protos := make([]namedProtocol, len(d.protocols))
	copy(protos, d.protocols)
	d.mu.Unlock()

	for _, f := range filters {
		if !f(p) {
			return nil
		}
	}

	if len(protos) > 1 {
		p.ThreadSafe = true
	}

	var firstErr error
	for _, np := range protos {
		if err := np.proto.Submit(p); err != nil {
			d.log.Debugf("dispatcher: protocol %s submit failed: %v", np.name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Dispose disconnects every protocol concurrently via errgroup, collecting
// the first error, stops any active WatchConfig timer, and clears the
// session registry (§5 "the dispatcher's dispose clears the session
// registry").
func (d *Dispatcher) Dispose() error {
	d.StopWatchConfig()

	d.mu.Lock()
	protos := make([]namedProtocol, len(d.protocols))
	copy(protos, d.protocols)
	d.protocols = nil
	d.enabled = false
	d.mu.Unlock()

	var g errgroup.Group
	for _, np := range protos {
		np := np
		g.Go(func() error {
			return np.proto.Disconnect()
		})
	}
	err := g.Wait()

	d.sessions.Dispose()
	return err
}

// WatchConfig implements the supplemented ConfigurationTimer
// (SPEC_FULL.md "Supplemented features" #5, configuration_timer.py): a timer
// that periodically calls reload to fetch a (possibly unchanged) connection
// string and, on success, hands it to apply so the caller can rebuild the
// protocol list. Calling WatchConfig again replaces any previously running
// timer. Returns a stop function equivalent to StopWatchConfig.
func (d *Dispatcher) WatchConfig(interval time.Duration, reload func() (string, error), apply func(string) error) (stop func()) {
	d.StopWatchConfig()

	d.watchMu.Lock()
	stopCh := make(chan struct{})
	d.watchStop = stopCh
	d.watchMu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				cs, err := reload()
				if err != nil {
					d.log.Warnf("dispatcher: config reload failed: %v", err)
					continue
				}
				if err := apply(cs); err != nil {
					d.log.Warnf("dispatcher: config apply failed: %v", err)
				}
			}
		}
	}()

	return d.StopWatchConfig
}

// StopWatchConfig stops any running WatchConfig timer; safe to call when
// none is running.
func (d *Dispatcher) StopWatchConfig() {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.watchStop != nil {
		close(d.watchStop)
		d.watchStop = nil
	}
}
