package queue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/siwire/queue"
)

type fakeSized struct{ n int }

func (f fakeSized) Size() int { return f.n }

func TestPacketQueueTailDropFromHead(t *testing.T) {
	q := queue.NewPacketQueue()

	q.Push(fakeSized{n: 10}, 100) // size 34
	q.Push(fakeSized{n: 10}, 100) // size 68
	q.Push(fakeSized{n: 10}, 100) // size 102 > 100, drops the oldest (34) -> 68

	require.Equal(t, 2, q.Len())
	require.Equal(t, 68, q.Size())
}

func TestPacketQueueFIFOOrder(t *testing.T) {
	q := queue.NewPacketQueue()
	q.Push(fakeSized{n: 1}, 0)
	q.Push(fakeSized{n: 2}, 0)
	q.Push(fakeSized{n: 3}, 0)

	require.Equal(t, fakeSized{n: 1}, q.Pop())
	require.Equal(t, fakeSized{n: 2}, q.Pop())
	require.Equal(t, fakeSized{n: 3}, q.Pop())
	require.Nil(t, q.Pop())
}

func TestPacketQueueDrain(t *testing.T) {
	q := queue.NewPacketQueue()
	q.Push(fakeSized{n: 1}, 0)
	q.Push(fakeSized{n: 2}, 0)

	got := q.Drain()
	require.Len(t, got, 2)
	require.Equal(t, 0, q.Len())
	require.Equal(t, 0, q.Size())
}

func TestSchedulerQueueTrimOnlyRemovesWritePacket(t *testing.T) {
	q := queue.NewSchedulerQueue()
	q.PushTail(queue.Command{Kind: queue.Connect})
	q.PushTail(queue.Command{Kind: queue.WritePacket, Packet: fakeSized{n: 50}})
	q.PushTail(queue.Command{Kind: queue.WritePacket, Packet: fakeSized{n: 50}})
	q.PushTail(queue.Command{Kind: queue.Disconnect})

	reached := q.Trim(100)
	require.True(t, reached)
	require.Equal(t, 2, q.Len())

	first, ok := q.PopFront()
	require.True(t, ok)
	require.Equal(t, queue.Connect, first.Kind)

	second, ok := q.PopFront()
	require.True(t, ok)
	require.Equal(t, queue.Disconnect, second.Kind)
}

func TestSchedulerQueueHeadRequeue(t *testing.T) {
	q := queue.NewSchedulerQueue()
	q.PushTail(queue.Command{Kind: queue.WritePacket, Packet: fakeSized{n: 1}})
	q.PushHead(queue.Command{Kind: queue.WritePacket, Packet: fakeSized{n: 2}})

	first, _ := q.PopFront()
	require.Equal(t, 2, first.Packet.Size())
}
