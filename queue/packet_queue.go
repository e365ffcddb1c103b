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

// Package queue implements the two doubly-linked-list queues shared by the
// protocol backlog and the scheduler: PacketQueue (§4.2's "Backlog queue")
// and SchedulerQueue (§4.1's "Queue").
package queue

import "container/list"

// nodeOverhead is the fixed bookkeeping cost each queue attributes to a link,
// on top of the payload's own accounted size (§4.1, §4.2).
const nodeOverhead = 24

// Sized is satisfied by anything a queue can account for by byte size.
type Sized interface {
	Size() int
}

// PacketQueue is the protocol backlog: push always at tail, pop always from
// head, with byte-size accounting and tail-drop from head when the running
// total exceeds a caller-supplied limit.
type PacketQueue struct {
	l         *list.List
	totalSize int
}

// NewPacketQueue returns an empty PacketQueue.
func NewPacketQueue() *PacketQueue {
	return &PacketQueue{l: list.New()}
}

// Push appends p at the tail and, if the running size now exceeds limit,
// drops from the head until back within limit (§4.2 "Backlog queue").
// It returns the number of packets dropped.
func (q *PacketQueue) Push(p Sized, limit int) int {
	q.l.PushBack(p)
	q.totalSize += p.Size() + nodeOverhead

	dropped := 0
	for limit > 0 && q.totalSize > limit && q.l.Len() > 0 {
		q.popFront()
		dropped++
	}
	return dropped
}

// Pop removes and returns the packet at the head, or nil if empty.
func (q *PacketQueue) Pop() Sized {
	return q.popFront()
}

func (q *PacketQueue) popFront() Sized {
	front := q.l.Front()
	if front == nil {
		return nil
	}
	q.l.Remove(front)
	p := front.Value.(Sized)
	q.totalSize -= p.Size() + nodeOverhead
	return p
}

// Len returns the number of queued packets.
func (q *PacketQueue) Len() int { return q.l.Len() }

// Size returns the current accounted byte total (payload sizes plus
// per-node overhead).
func (q *PacketQueue) Size() int { return q.totalSize }

// Clear empties the queue and resets the accounted size to zero.
func (q *PacketQueue) Clear() {
	q.l.Init()
	q.totalSize = 0
}

// Drain pops every packet in FIFO order and returns them as a slice,
// leaving the queue empty. Used when a backlog flush threshold is hit and
// the protocol needs to replay the whole backlog before the triggering
// packet (§4.2 step 4).
func (q *PacketQueue) Drain() []Sized {
	out := make([]Sized, 0, q.l.Len())
	for {
		p := q.popFront()
		if p == nil {
			break
		}
		out = append(out, p)
	}
	return out
}
