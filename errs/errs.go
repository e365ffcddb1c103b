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

// Package errs implements the coded error taxonomy used across the transport
// subsystem: ConfigurationError, ProtocolError, RuntimeErrorNonFatal, and the
// two tiered cloud-reconnect errors. Each is a distinct Code so that callers
// can branch with Is/Has instead of string matching.
package errs

import (
	"fmt"
	"runtime"
	"strings"
)

// Code is a small numeric identifier for one of the error kinds in §7.
type Code uint16

const (
	// Unknown is the zero value, never produced by this package's constructors.
	Unknown Code = iota

	// Configuration covers invalid connection-string syntax, unknown protocol
	// or option names, and malformed option values (size/timespan/color/byte
	// string).
	Configuration

	// Protocol covers a concrete transport failure: connect refused, banner
	// mismatch, write failed, unexpected server reply, missing/wrong-size
	// encryption key.
	Protocol

	// RuntimeNonFatal covers chunking exceptions and unexpected server
	// warning replies: surfaced through the error listener, swallowed by the
	// scheduler worker.
	RuntimeNonFatal

	// CloudReconnectAllowed is a tiered cloud-server rejection that still
	// permits a subsequent reconnect.
	CloudReconnectAllowed

	// CloudReconnectForbidden is a tiered cloud-server rejection after which
	// internal_reconnect must short-circuit to failure.
	CloudReconnectForbidden
)

func (c Code) String() string {
	switch c {
	case Configuration:
		return "configuration"
	case Protocol:
		return "protocol"
	case RuntimeNonFatal:
		return "runtime-non-fatal"
	case CloudReconnectAllowed:
		return "cloud-reconnect-allowed"
	case CloudReconnectForbidden:
		return "cloud-reconnect-forbidden"
	default:
		return "unknown"
	}
}

// Error is a coded error carrying an optional message, an optional protocol
// name for diagnostics, wrapped parent errors, and the call-site frame that
// raised it.
type Error interface {
	error
	Code() Code
	Is(err error) bool
	Has(code Code) bool
	Unwrap() []error
}

type ers struct {
	code    Code
	msg     string
	proto   string
	parents []error
	frame   runtime.Frame
}

// New builds an Error for code with the given message. Extra parent errors
// are wrapped and reachable through Unwrap/Has.
func New(code Code, msg string, parents ...error) Error {
	return newErr(code, msg, "", parents)
}

// NewProtocol builds a Protocol-coded error carrying the offending protocol's
// name for diagnostics, per §7 ("Carries protocol name and options").
func NewProtocol(proto, msg string, parents ...error) Error {
	return newErr(Protocol, msg, proto, parents)
}

func newErr(code Code, msg, proto string, parents []error) Error {
	var pc [3]uintptr
	n := runtime.Callers(3, pc[:])
	var frame runtime.Frame
	if n > 0 {
		frames := runtime.CallersFrames(pc[:n])
		frame, _ = frames.Next()
	}

	clean := make([]error, 0, len(parents))
	for _, p := range parents {
		if p != nil {
			clean = append(clean, p)
		}
	}

	return &ers{code: code, msg: msg, proto: proto, parents: clean, frame: frame}
}

func (e *ers) Code() Code { return e.code }

func (e *ers) Error() string {
	var b strings.Builder
	b.WriteString(e.code.String())
	if e.proto != "" {
		b.WriteString("[")
		b.WriteString(e.proto)
		b.WriteString("]")
	}
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	for _, p := range e.parents {
		b.WriteString("; ")
		b.WriteString(p.Error())
	}
	return b.String()
}

func (e *ers) Unwrap() []error { return e.parents }

func (e *ers) Has(code Code) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parents {
		if o, ok := p.(Error); ok && o.Has(code) {
			return true
		}
	}
	return false
}

func (e *ers) Is(err error) bool {
	if err == nil {
		return false
	}
	if o, ok := err.(*ers); ok {
		return e.code == o.code && strings.EqualFold(e.frame.Function, o.frame.Function)
	}
	return false
}

// Trace returns "file:line" of the call site that raised the error, empty if
// unavailable.
func (e *ers) Trace() string {
	if e.frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", e.frame.File, e.frame.Line)
}
