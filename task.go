package join

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// taskIDSize is the size in bytes of the task ID header.
	// This must be consistent between broker and server implementations.
	taskIDSize = 4
)

// taskIDPool recycles task ID byte slices to reduce allocations on the
// broker hot path.
type taskIDPool struct {
	pool sync.Pool
}

var globalTaskIDPool = newTaskIDPool()

func newTaskIDPool() *taskIDPool {
	tp := &taskIDPool{}
	tp.pool = sync.Pool{
		New: func() any {
			return make([]byte, taskIDSize)
		},
	}

	return tp
}

// get retrieves a task ID byte slice from the pool.
func (tp *taskIDPool) get() []byte {
	if b, ok := tp.pool.Get().([]byte); ok && len(b) == taskIDSize {
		return b
	}

	return make([]byte, taskIDSize)
}

// put returns a task ID byte slice to the pool.
func (tp *taskIDPool) put(taskID []byte) {
	if len(taskID) != taskIDSize {
		return // Don't pool incorrectly sized slices.
	}
	taskID[0], taskID[1], taskID[2], taskID[3] = 0, 0, 0, 0
	tp.pool.Put(taskID)
}

// Task represents a single request/response operation managed by the broker.
// Each task has a unique ID that is prepended to the request message and
// must be included at the start of the response for proper correlation.
type Task struct {
	//nolint:containedctx // Necessary for task cancellation within broker queue.
	ctx      context.Context // Context for cancellation and timeouts
	taskID   []byte          // Unique identifier bytes for framing (big-endian uint32)
	key      string          // Immutable copy of taskID used as the map key
	request  *[]byte         // Request payload to be sent
	response chan []byte     // Channel for receiving the response
	errCh    chan error      // Channel for receiving errors
	created  time.Time       // Creation timestamp
	recycled atomic.Bool     // Guards the one-time task ID recycle
}

// Context returns the task's context, which can be used for cancellation
// and timeout control. The context is typically created with a timeout
// when using SendContext.
func (t *Task) Context() context.Context {
	return t.ctx
}

// recycleID returns the task ID slice to the shared pool. A response and a
// failure can race on the same task, so only the first caller recycles.
func (t *Task) recycleID() {
	if t.recycled.CompareAndSwap(false, true) {
		globalTaskIDPool.put(t.taskID)
	}
}
