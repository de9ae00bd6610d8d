package join

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskIDPoolPut(t *testing.T) {
	p := newTaskIDPool()

	id := p.get()
	require.Len(t, id, taskIDSize)

	copy(id, []byte{1, 2, 3, 4})
	p.put(id)
	require.Equal(t, []byte{0, 0, 0, 0}, id) // scrubbed in place

	// Wrong-size slices are dropped, and get always yields the right size.
	p.put(make([]byte, 2))
	require.Len(t, p.get(), taskIDSize)
}

func TestTaskIDRecycledOnFailure(t *testing.T) {
	b, ok := NewBroker(nil, 1, nil, nil).(*broker)
	require.True(t, ok)

	req := []byte("req")
	task := b.newTask(context.Background(), &req)
	require.Equal(t, string(task.taskID), task.key)

	b.pending.Store(task.key, task)
	b.failPending(task)

	require.True(t, task.recycled.Load())
	_, still := b.pending.Load(task.key)
	require.False(t, still)

	// A second recycle must be a no-op.
	task.recycleID()
}

func TestTaskIDRecycledOnResponse(t *testing.T) {
	b, ok := NewBroker(nil, 1, nil, nil).(*broker)
	require.True(t, ok)

	req := []byte("req")
	task := b.newTask(context.Background(), &req)
	b.pending.Store(task.key, task)

	resp := append([]byte(task.key), []byte("payload")...)
	b.respondPending(resp)

	require.Equal(t, []byte("payload"), <-task.response)
	require.True(t, task.recycled.Load())

	_, still := b.pending.Load(task.key)
	require.False(t, still)
}
