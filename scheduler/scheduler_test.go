package scheduler_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/queue"
	"github.com/nabbar/siwire/scheduler"
)

type sized struct{ n int }

func (s sized) Size() int { return s.n }

type fakeProtocol struct {
	mu         sync.Mutex
	tcp        bool
	failed     bool
	connects   int
	writes     []int
	disconnect int
	failNext   bool
}

func (f *fakeProtocol) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeProtocol) WritePacket(p queue.Sized) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, p.Size())
	if f.failNext {
		f.failNext = false
		return errors.New("write failed")
	}
	return nil
}

func (f *fakeProtocol) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnect++
	return nil
}

func (f *fakeProtocol) DispatchState(state interface{}) error { return nil }
func (f *fakeProtocol) TCPFamily() bool                       { return f.tcp }
func (f *fakeProtocol) Failed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

func (f *fakeProtocol) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func TestSchedulerDrainsInOrder(t *testing.T) {
	p := &fakeProtocol{}
	s := scheduler.New(p, 1024, true, nil)
	s.Start()

	s.Enqueue(queue.Command{Kind: queue.Connect})
	s.Enqueue(queue.Command{Kind: queue.WritePacket, Packet: sized{n: 5}})
	s.Enqueue(queue.Command{Kind: queue.WritePacket, Packet: sized{n: 7}})
	s.Enqueue(queue.Command{Kind: queue.Disconnect})

	require.Eventually(t, func() bool { return p.writeCount() == 2 }, time.Second, time.Millisecond)
	s.Stop()

	require.Equal(t, 1, p.connects)
	require.Equal(t, []int{5, 7}, p.writes)
	require.Equal(t, 1, p.disconnect)
}

func TestSchedulerDropsOversizedCommand(t *testing.T) {
	p := &fakeProtocol{}
	s := scheduler.New(p, 10, true, nil)
	s.Start()
	defer s.Stop()

	ok := s.Enqueue(queue.Command{Kind: queue.WritePacket, Packet: sized{n: 100}})
	require.False(t, ok)
}

func TestSchedulerRequeuesOnTCPWriteFailure(t *testing.T) {
	p := &fakeProtocol{tcp: true, failNext: true}
	s := scheduler.New(p, 1024, true, nil)
	s.Start()

	s.Enqueue(queue.Command{Kind: queue.WritePacket, Packet: sized{n: 3}})

	require.Eventually(t, func() bool { return p.writeCount() >= 2 }, 3*time.Second, 5*time.Millisecond)
	s.Stop()
}
