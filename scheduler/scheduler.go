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

// Package scheduler turns a blocking Protocol API into a non-blocking
// producer interface with a memory cap and a deterministic back-pressure or
// drop policy (§4.1).
package scheduler

import (
	"sync"
	"time"

	"github.com/nabbar/siwire/internal/siplog"
	"github.com/nabbar/siwire/queue"
)

// tcpStagingCapacity and defaultStagingCapacity are the worker's batch sizes:
// TCP-family protocols stage one command at a time so a failed write is
// retried before anything else is attempted; every other protocol stages up
// to 16 (§4.1 "Worker" step 1).
const (
	tcpStagingCapacity     = 1
	defaultStagingCapacity = 16
)

const consecutiveFailureBackoff = time.Second

// Protocol is the subset of protocol-base behavior the scheduler drives.
// internal_connect/internal_write_packet/internal_disconnect/internal_dispatch
// in §4.1 map to Connect/WritePacket/Disconnect/DispatchState below.
type Protocol interface {
	Connect() error
	WritePacket(p queue.Sized) error
	Disconnect() error
	DispatchState(state interface{}) error

	// TCPFamily reports whether this protocol follows the requeue-on-failure
	// and staging-capacity-1 rules reserved for socket-backed transports.
	TCPFamily() bool

	// Failed reports whether the protocol is currently in the failed state.
	Failed() bool
}

// ReconnectGate is optionally implemented by a TCP-family protocol whose
// server can permanently forbid reconnection (the cloud protocol's
// ReconnectForbidden tier, §4.5). When implemented and it reports false,
// the worker skips requeue-on-failure instead of retrying a write the
// server will never accept again. Protocols that don't implement it always
// requeue on failure, as plain TCP does.
type ReconnectGate interface {
	ReconnectAllowed() bool
}

// Scheduler owns a worker goroutine and a SchedulerQueue, draining commands
// into a Protocol with throttle-or-drop admission control (§4.1).
type Scheduler struct {
	proto     Protocol
	threshold int
	throttle  bool
	log       siplog.Logger

	mu   sync.Mutex
	cond *sync.Cond
	q    *queue.SchedulerQueue

	stopped bool
	done    chan struct{}

	consecutiveFailures int
}

// New builds a Scheduler bound to proto, with the given queue byte threshold
// and throttle-vs-drop admission policy (§4.2's async.queue/async.throttle
// options).
func New(proto Protocol, threshold int, throttle bool, log siplog.Logger) *Scheduler {
	if log == nil {
		log = siplog.Default()
	}
	s := &Scheduler{
		proto:     proto,
		threshold: threshold,
		throttle:  throttle,
		log:       log,
		q:         queue.NewSchedulerQueue(),
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the worker goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Enqueue applies §4.1's enqueue policy for cmd and returns whether it was
// admitted (false means dropped because it exceeded threshold on its own).
func (s *Scheduler) Enqueue(cmd queue.Command) bool {
	size := cmd.Size()
	if size > s.threshold {
		s.log.Debugf("scheduler: dropping %s command of size %d over threshold %d", cmd.Kind, size, s.threshold)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.throttle || s.proto.Failed() {
		if s.q.Size()+size > s.threshold {
			s.q.Trim(size)
		}
	} else {
		for s.q.Size()+size > s.threshold && !s.stopped {
			s.cond.Wait()
		}
	}

	s.q.PushTail(cmd)
	s.cond.Signal()
	return true
}

// requeueHead is used for requeue-on-failure: it re-admits cmd at the head
// without re-applying the threshold drop/wait logic, since it is replaying
// work the queue already accepted once.
func (s *Scheduler) requeueHead(cmd queue.Command) {
	s.mu.Lock()
	s.q.PushHead(cmd)
	s.cond.Signal()
	s.mu.Unlock()
}

// ClearQueue empties the pending command queue, used by async disconnect
// when async.clearondisconnect is set (§5 "Cancellation and shutdown").
func (s *Scheduler) ClearQueue() {
	s.mu.Lock()
	s.q.Clear()
	s.cond.Signal()
	s.mu.Unlock()
}

// Stop marks the scheduler stopped, wakes the worker, and blocks until it
// exits (§4.1 "Stop").
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		batch, stopping := s.drain()
		if len(batch) == 0 && stopping {
			return
		}

		failedThisBatch := false
		for _, cmd := range batch {
			if err := s.execute(cmd); err != nil {
				failedThisBatch = true
			}
		}

		if failedThisBatch && s.proto.TCPFamily() {
			time.Sleep(consecutiveFailureBackoff)
		}

		if stopping && s.proto.Failed() {
			s.mu.Lock()
			s.q.Clear()
			s.mu.Unlock()
			return
		}
	}
}

// drain pulls up to the protocol's staging capacity off the head of the
// queue, waiting on the condition if empty and not stopped (§4.1 step 1).
func (s *Scheduler) drain() (batch []queue.Command, stopping bool) {
	capacity := defaultStagingCapacity
	if s.proto.TCPFamily() {
		capacity = tcpStagingCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.q.Len() == 0 && !s.stopped {
		s.cond.Wait()
	}

	for len(batch) < capacity {
		cmd, ok := s.q.PopFront()
		if !ok {
			break
		}
		batch = append(batch, cmd)
	}

	s.cond.Signal()
	return batch, s.stopped
}

func (s *Scheduler) execute(cmd queue.Command) error {
	var err error
	switch cmd.Kind {
	case queue.Connect:
		err = s.proto.Connect()
	case queue.WritePacket:
		err = s.proto.WritePacket(cmd.Packet)
		s.onWriteResult(cmd, err)
	case queue.Disconnect:
		err = s.proto.Disconnect()
	case queue.Dispatch:
		err = s.proto.DispatchState(cmd.DispatchState)
	}
	if err != nil {
		s.log.Debugf("scheduler: %s failed: %v", cmd.Kind, err)
	}
	return err
}

// onWriteResult implements requeue-on-failure (§4.1): a TCP-family write
// failure re-enqueues the same packet at the head and bumps the consecutive
// failure counter; a success resets it. Non-TCP protocols never requeue. A
// protocol reporting ReconnectAllowed()==false (cloud, post
// reconnect-forbidden) is excluded too: the server has already said it will
// never accept this connection again, so replaying the packet only spins.
func (s *Scheduler) onWriteResult(cmd queue.Command, err error) {
	if !s.proto.TCPFamily() {
		return
	}
	if err != nil {
		if g, ok := s.proto.(ReconnectGate); ok && !g.ReconnectAllowed() {
			return
		}
		s.consecutiveFailures++
		s.requeueHead(cmd)
		return
	}
	s.consecutiveFailures = 0
}
