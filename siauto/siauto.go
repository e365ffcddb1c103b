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

// Package siauto implements the process-wide default dispatcher and "Main"
// session (si_auto.py): a ready-to-use logging target for callers who don't
// want to build and wire their own Dispatcher. Unlike the source, which
// builds its SiAuto class instance at import time as a package-level
// singleton, this package models it as an explicit object with an
// Initialize/Deinitialize lifecycle: a bare `var Default *State` importable
// from anywhere would make every test that touches this package share one
// global dispatcher, so construction is deferred to an explicit call and a
// second independent instance can be built in a test that needs one
// (design note, §"process-wide SiAuto").
package siauto

import (
	"runtime"
	"sync"

	"github.com/nabbar/siwire/dispatcher"
	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/session"
	"github.com/nabbar/siwire/vars"
)

const (
	appName     = "Auto"
	mainSession = "Main"

	// windowsConnections and nonWindowsConnections mirror si_auto.py's two
	// hardcoded defaults: a named pipe on Windows, a loopback TCP listener
	// everywhere else, both reconnecting automatically.
	windowsConnections    = "pipe(reconnect=true,reconnect.interval=1s)"
	nonWindowsConnections = "tcp(host=localhost,port=4228,reconnect=true,reconnect.interval=1s)"
)

// State is one process-wide default dispatcher plus its "Main" session. The
// zero value is not ready to use; build one with New.
type State struct {
	mu   sync.Mutex
	disp *dispatcher.Dispatcher
	main *session.Session
}

var (
	defaultMu    sync.Mutex
	defaultState *State
)

// New builds an independent State with its own Dispatcher and "Main"
// session, applying the platform-appropriate default connection string. A
// connections override (non-empty) replaces the platform default, for
// callers that want the Main-session convenience without the default
// transport (si_auto.py only ever uses the hardcoded defaults; this is an
// addition for testability).
func New(log siplog.Logger, connections string) (*State, error) {
	d := dispatcher.New(log, session.Defaults{Active: true})

	if connections == "" {
		connections = defaultConnections()
	}
	if err := d.BuildFromConnections(connections, vars.Default()); err != nil {
		return nil, err
	}

	s := &State{disp: d, main: d.Sessions().GetOrCreate(mainSession)}
	return s, nil
}

func defaultConnections() string {
	if runtime.GOOS == "windows" {
		return windowsConnections
	}
	return nonWindowsConnections
}

// Dispatcher returns s's underlying Dispatcher.
func (s *State) Dispatcher() *dispatcher.Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disp
}

// Main returns s's "Main" session, created at New time (si_auto.py's
// `SiAuto.main`).
func (s *State) Main() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.main
}

// Session returns (creating if absent) the named session on s's registry.
func (s *State) Session(name string) *session.Session {
	return s.Dispatcher().Sessions().GetOrCreate(name)
}

// Deinitialize disconnects every protocol and clears the session registry,
// leaving s unusable; callers should drop their reference afterward.
func (s *State) Deinitialize() error {
	return s.Dispatcher().Dispose()
}

// Initialize builds the process-wide default State and stores it, replacing
// any previously initialized one without disposing it — callers that
// re-initialize are expected to have already called Deinitialize on the
// prior instance if they cared about its transports shutting down cleanly.
func Initialize(log siplog.Logger, connections string) error {
	s, err := New(log, connections)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultState = s
	defaultMu.Unlock()
	return nil
}

// Dispatcher returns the process-wide default State's Dispatcher, or nil if
// Initialize has not been called.
func Dispatcher() *dispatcher.Dispatcher {
	defaultMu.Lock()
	s := defaultState
	defaultMu.Unlock()
	if s == nil {
		return nil
	}
	return s.Dispatcher()
}

// Session returns a named session on the process-wide default State's
// registry, or nil if Initialize has not been called.
func Session(name string) *session.Session {
	defaultMu.Lock()
	s := defaultState
	defaultMu.Unlock()
	if s == nil {
		return nil
	}
	return s.Session(name)
}

// Deinitialize disposes the process-wide default State, if any, and clears
// it so a subsequent Initialize starts clean.
func Deinitialize() error {
	defaultMu.Lock()
	s := defaultState
	defaultState = nil
	defaultMu.Unlock()
	if s == nil {
		return nil
	}
	return s.Deinitialize()
}
