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

package queue

import "container/list"

// CommandKind tags a scheduler Command (§4.1 "Commands").
type CommandKind uint8

const (
	Connect CommandKind = iota
	WritePacket
	Disconnect
	Dispatch
)

func (k CommandKind) String() string {
	switch k {
	case Connect:
		return "CONNECT"
	case WritePacket:
		return "WRITE_PACKET"
	case Disconnect:
		return "DISCONNECT"
	case Dispatch:
		return "DISPATCH"
	default:
		return "UNKNOWN"
	}
}

// Command is the scheduler's tagged-union unit of work. Packet is set only
// for WritePacket; DispatchState is set only for Dispatch.
type Command struct {
	Kind          CommandKind
	Packet        Sized
	DispatchState interface{}
}

// Size is the packet's accounted size for WritePacket, 0 otherwise (§4.1).
func (c Command) Size() int {
	if c.Kind == WritePacket && c.Packet != nil {
		return c.Packet.Size()
	}
	return 0
}

// SchedulerQueue is the scheduler's command backlog: a doubly-linked deque
// with O(1) insert at either end and O(1) dequeue from the head, plus a
// selective trim that only discards WritePacket commands (§4.1 "Queue").
type SchedulerQueue struct {
	l         *list.List
	totalSize int
}

// NewSchedulerQueue returns an empty SchedulerQueue.
func NewSchedulerQueue() *SchedulerQueue {
	return &SchedulerQueue{l: list.New()}
}

// PushTail appends cmd at the tail: normal forward progress.
func (q *SchedulerQueue) PushTail(cmd Command) {
	q.l.PushBack(cmd)
	q.totalSize += cmd.Size() + nodeOverhead
}

// PushHead prepends cmd at the head: requeue-on-failure (§4.1
// "Requeue-on-failure").
func (q *SchedulerQueue) PushHead(cmd Command) {
	q.l.PushFront(cmd)
	q.totalSize += cmd.Size() + nodeOverhead
}

// PopFront removes and returns the head command, and true, or a zero Command
// and false if the queue is empty.
func (q *SchedulerQueue) PopFront() (Command, bool) {
	front := q.l.Front()
	if front == nil {
		return Command{}, false
	}
	q.l.Remove(front)
	cmd := front.Value.(Command)
	q.totalSize -= cmd.Size() + nodeOverhead
	return cmd, true
}

// Len returns the number of queued commands.
func (q *SchedulerQueue) Len() int { return q.l.Len() }

// Size returns the current accounted byte total.
func (q *SchedulerQueue) Size() int { return q.totalSize }

// Clear empties the queue.
func (q *SchedulerQueue) Clear() {
	q.l.Init()
	q.totalSize = 0
}

// Trim walks from the head, removing only WritePacket commands (CONNECT,
// DISCONNECT and DISPATCH are never dropped), stopping once the accumulated
// removed size reaches minBytes. Returns true iff it reached the target
// (§4.1 "Queue").
func (q *SchedulerQueue) Trim(minBytes int) bool {
	removed := 0
	e := q.l.Front()
	for e != nil && removed < minBytes {
		next := e.Next()
		cmd := e.Value.(Command)
		if cmd.Kind == WritePacket {
			q.l.Remove(e)
			sz := cmd.Size() + nodeOverhead
			q.totalSize -= sz
			removed += sz
		}
		e = next
	}
	return removed >= minBytes
}
