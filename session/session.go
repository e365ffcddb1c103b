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

// Package session implements C13, the Session type and its name-keyed
// registry (§3 "Session"): a dispatcher-owned collection of named sessions
// with per-session color/level/active state and per-name checkpoint and
// watch counters.
package session

import (
	"strings"
	"sync"

	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
	"github.com/nabbar/siwire/packet"
)

// Dispatcher is the subset of the top-level dispatcher a Session needs to
// deliver packets; defined here (rather than imported from package
// dispatcher) so dispatcher can hold a Registry without an import cycle.
type Dispatcher interface {
	Submit(p *packet.Packet) error
}

// Defaults carries the values newly created sessions start from
// (SPEC_FULL.md supplemented feature #6, session_defaults.py).
type Defaults struct {
	Active bool
	Color  lookup.Color
	Level  level.Level
}

// Session is a named logging context: color, level, active flag, and two
// independent per-name counters used by checkpoint and watch helpers
// (out of scope themselves per §1, but the counters they consume are part
// of this model, §3).
type Session struct {
	reg *Registry

	mu     sync.RWMutex
	name   string
	active bool
	color  lookup.Color
	level  level.Level

	checkpoints   map[string]int
	watchCounters map[string]int
}

func newSession(reg *Registry, name string, d Defaults) *Session {
	return &Session{
		reg:           reg,
		name:          name,
		active:        d.Active,
		color:         d.Color,
		level:         d.Level,
		checkpoints:   make(map[string]int),
		watchCounters: make(map[string]int),
	}
}

// Name returns the session's current name.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName renames the session and atomically re-keys the registry entry
// under the new name (§3 "updating a session's name atomically re-keys the
// registry entry").
func (s *Session) SetName(name string) {
	s.reg.rename(s, name)
}

func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *Session) Color() lookup.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

func (s *Session) SetColor(c lookup.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.color = c
}

func (s *Session) Level() level.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

func (s *Session) SetLevel(l level.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = l
}

// NextCheckpoint increments and returns the counter for name, used by the
// out-of-scope checkpoint helper to number successive CHECKPOINT entries
// sharing the same label.
func (s *Session) NextCheckpoint(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[name]++
	return s.checkpoints[name]
}

// ResetCheckpoint clears the counter for name, or every counter when name is
// empty (RESET_CALLSTACK / CLEAR_ALL semantics).
func (s *Session) ResetCheckpoint(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.checkpoints = make(map[string]int)
		return
	}
	delete(s.checkpoints, name)
}

// NextWatchCounter increments and returns the counter for a watch name.
func (s *Session) NextWatchCounter(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchCounters[name]++
	return s.watchCounters[name]
}

// Submit hands p to the owning registry's dispatcher, the mechanism by which
// a Session's logging methods (out of scope per §1) ultimately reach every
// configured protocol.
func (s *Session) Submit(p *packet.Packet) error {
	return s.reg.submit(p)
}

// Registry is the dispatcher-owned, case-insensitive collection of named
// Sessions (§3 "Session", §5 "Ownership and lifecycle": "the dispatcher
// holds the weaker reference logically").
type Registry struct {
	mu       sync.Mutex
	items    map[string]*Session // keyed lower-case
	defaults Defaults
	disp     Dispatcher
}

// NewRegistry builds an empty Registry bound to disp, with d applied to
// every session created through GetOrCreate.
func NewRegistry(disp Dispatcher, d Defaults) *Registry {
	return &Registry{
		items:    make(map[string]*Session),
		defaults: d,
		disp:     disp,
	}
}

// Get returns the session named name (case-insensitive) and whether it
// exists. The source's Session.get always returns None regardless of lookup
// result (a missing return statement, §9 design note b); this implementation
// returns the mapped value, treating the source behavior as a bug.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[strings.ToLower(name)]
	return s, ok
}

// GetOrCreate returns the existing session named name, or creates one with
// the registry's defaults.
func (r *Registry) GetOrCreate(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if s, ok := r.items[key]; ok {
		return s
	}
	s := newSession(r, name, r.defaults)
	r.items[key] = s
	return s
}

// Delete removes name from the registry (the dispatcher's delete_session,
// §3 "Ownership and lifecycle").
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, strings.ToLower(name))
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Dispose clears the registry, per §5 "the dispatcher's dispose clears the
// session registry".
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*Session)
}

func (r *Registry) rename(s *Session, newName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	oldKey := strings.ToLower(s.name)
	s.name = newName
	s.mu.Unlock()

	if cur, ok := r.items[oldKey]; ok && cur == s {
		delete(r.items, oldKey)
	}
	r.items[strings.ToLower(newName)] = s
}

func (r *Registry) submit(p *packet.Packet) error {
	if r.disp == nil {
		return nil
	}
	return r.disp.Submit(p)
}
