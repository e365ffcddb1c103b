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

// Package siplog is the diagnostic logging sink shared by every component in
// the transport subsystem: dropped-packet debug logs, scheduler warnings,
// cloud tiered-error logs. It wraps logrus the way nabbar-golib/logger wraps
// it behind its own Logger interface, and offers an hclog-compatible adapter
// for host applications that standardized on hashicorp/go-hclog.
package siplog

import (
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/sirupsen/logrus"
)

// Logger is the minimal diagnostic surface every package in this module
// depends on. It is never the user-facing packet logging API (that is out of
// scope per §1); it exists purely for this library to report its own
// behavior (drops, reconnects, server rejections).
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type wrap struct {
	l *logrus.Logger
	e *logrus.Entry
}

var (
	defMu  sync.RWMutex
	defLog Logger = New()
)

// New builds a Logger backed by a fresh logrus.Logger writing to stderr at
// Info level, using logrus's text formatter with full timestamps, without
// requiring a caller to configure anything.
func New() Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	return &wrap{l: l}
}

// FromLogrus adapts an existing *logrus.Logger, for host applications that
// already manage their own logrus instance (hook chains, output targets).
func FromLogrus(l *logrus.Logger) Logger {
	return &wrap{l: l}
}

func (w *wrap) entry() *logrus.Entry {
	if w.e != nil {
		return w.e
	}
	return logrus.NewEntry(w.l)
}

func (w *wrap) Debugf(format string, args ...interface{}) { w.entry().Debugf(format, args...) }
func (w *wrap) Warnf(format string, args ...interface{})  { w.entry().Warnf(format, args...) }
func (w *wrap) Errorf(format string, args ...interface{}) { w.entry().Errorf(format, args...) }

func (w *wrap) WithField(key string, value interface{}) Logger {
	return &wrap{l: w.l, e: w.entry().WithField(key, value)}
}

// Default returns the process-wide fallback logger used by components that
// were not handed an explicit Logger (e.g. a Protocol constructed without
// one).
func Default() Logger {
	defMu.RLock()
	defer defMu.RUnlock()
	return defLog
}

// SetDefault replaces the process-wide fallback logger.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defMu.Lock()
	defer defMu.Unlock()
	defLog = l
}

// hclogAdapter lets an embedding application redirect this library's
// diagnostics into its own hclog.Logger tree, mirroring
// nabbar-golib/logger.NewHashicorpHCLog.
type hclogAdapter struct {
	hclog.Logger
	inner Logger
}

// NewHashicorpHCLog wraps l behind the hclog.Logger interface.
func NewHashicorpHCLog(l Logger) hclog.Logger {
	return &hclogAdapter{Logger: hclog.NewNullLogger(), inner: l}
}

func (h *hclogAdapter) Debug(msg string, args ...interface{}) { h.inner.Debugf("%s %v", msg, args) }
func (h *hclogAdapter) Warn(msg string, args ...interface{})  { h.inner.Warnf("%s %v", msg, args) }
func (h *hclogAdapter) Error(msg string, args ...interface{}) { h.inner.Errorf("%s %v", msg, args) }
func (h *hclogAdapter) Info(msg string, args ...interface{}) {
	h.inner.Debugf("%s %v", msg, args)
}
func (h *hclogAdapter) Trace(msg string, args ...interface{}) {
	h.inner.Debugf("%s %v", msg, args)
}
func (h *hclogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch {
	case level >= hclog.Error:
		h.Error(msg, args...)
	case level >= hclog.Warn:
		h.Warn(msg, args...)
	default:
		h.Debug(msg, args...)
	}
}
func (h *hclogAdapter) With(args ...interface{}) hclog.Logger {
	l := h.inner
	for i := 0; i+1 < len(args); i += 2 {
		if k, ok := args[i].(string); ok {
			l = l.WithField(k, args[i+1])
		}
	}
	return &hclogAdapter{Logger: h.Logger, inner: l}
}
func (h *hclogAdapter) Named(name string) hclog.Logger {
	return &hclogAdapter{Logger: h.Logger, inner: h.inner.WithField("name", name)}
}
