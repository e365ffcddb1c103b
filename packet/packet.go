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

package packet

import (
	"sync"

	"github.com/nabbar/siwire/level"
	"github.com/nabbar/siwire/lookup"
)

// Body is implemented by each kind-specific payload (LogEntry, Watch,
// ControlCommand, ProcessFlow, LogHeader, Chunk). bodySize returns the
// in-memory size contribution used by queue accounting (§3): header size
// plus twice each string's character count plus payload byte length.
type Body interface {
	kind() Kind
	bodySize() int
}

// Packet is the envelope shared by every variant: a Kind tag, a Level, the
// thread-safety flag the dispatcher may set, and a kind-specific Body. The
// mutex is only exercised when ThreadSafe is true, so that an asynchronous
// worker can safely read a packet the producer might still be touching
// (§3 "threadsafe flag").
type Packet struct {
	Level      level.Level
	ThreadSafe bool

	body Body
	mu   sync.Mutex
}

// New wraps body in a Packet at the given level.
func New(lvl level.Level, body Body) *Packet {
	return &Packet{Level: lvl, body: body}
}

func (p *Packet) Kind() Kind { return p.body.kind() }
func (p *Packet) Body() Body { return p.body }

// Size is the queue-accounting accessor: kind header size + 2*len(strings) +
// len(payload bytes), an approximation of memory use, not wire size (§3).
func (p *Packet) Size() int {
	return p.body.bodySize()
}

// Lock/Unlock are no-ops unless ThreadSafe was set by the dispatcher, so that
// synchronous single-writer paths never pay for an uncontended mutex.
func (p *Packet) Lock() {
	if p.ThreadSafe {
		p.mu.Lock()
	}
}

func (p *Packet) Unlock() {
	if p.ThreadSafe {
		p.mu.Unlock()
	}
}

func stringSize(s string) int {
	return 2 * len([]rune(s))
}

// LogEntry is the richest packet kind: sub-type, viewer id, four identity
// strings, opaque payload, pid/tid, timestamp, color (§3).
type LogEntry struct {
	SubType     EntryType
	Viewer      ViewerID
	AppName     string
	SessionName string
	Title       string
	HostName    string
	Payload     []byte
	Pid         int32
	Tid         int32
	TimestampUS int64
	Color       lookup.Color
}

func (e *LogEntry) kind() Kind { return KindLogEntry }
func (e *LogEntry) bodySize() int {
	return KindLogEntry.HeaderSize() +
		stringSize(e.AppName) + stringSize(e.SessionName) +
		stringSize(e.Title) + stringSize(e.HostName) +
		len(e.Payload)
}

// Watch carries a name/value pair with a declared value kind (§3).
type Watch struct {
	Name        string
	Value       string
	WatchKind   WatchType
	TimestampUS int64
}

func (w *Watch) kind() Kind { return KindWatch }
func (w *Watch) bodySize() int {
	return KindWatch.HeaderSize() + stringSize(w.Name) + stringSize(w.Value)
}

// ControlCommand carries a command kind and opaque payload (§3).
type ControlCommand struct {
	Command ControlType
	Payload []byte
}

func (c *ControlCommand) kind() Kind { return KindControlCommand }
func (c *ControlCommand) bodySize() int {
	return KindControlCommand.HeaderSize() + len(c.Payload)
}

// ProcessFlow reports method/thread/process enter-leave events (§3).
type ProcessFlow struct {
	FlowKind    FlowType
	Title       string
	HostName    string
	Pid         int32
	Tid         int32
	TimestampUS int64
}

func (f *ProcessFlow) kind() Kind { return KindProcessFlow }
func (f *ProcessFlow) bodySize() int {
	return KindProcessFlow.HeaderSize() + stringSize(f.Title) + stringSize(f.HostName)
}

// LogHeader carries a CRLF-terminated key=value block identifying the
// stream (hostname, appname, and for the cloud protocol writekey /
// virtualfileid / customlabels) (§3).
type LogHeader struct {
	Content string // already formatted as "key=value\r\n..." pairs
}

func (h *LogHeader) kind() Kind { return KindLogHeader }
func (h *LogHeader) bodySize() int {
	return KindLogHeader.HeaderSize() + stringSize(h.Content)
}

// Chunk is a container produced only by the cloud protocol: a concatenation
// of fully-serialized non-Chunk packets (§3, §4.5).
type Chunk struct {
	Format      uint16 // always 1
	Count       int32
	PayloadData []byte
}

func (c *Chunk) kind() Kind { return KindChunk }
func (c *Chunk) bodySize() int {
	return KindChunk.HeaderSize() + len(c.PayloadData)
}
