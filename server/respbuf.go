package server

import (
	"sync"

	"github.com/joinframework/join"
)

// respBufferManager manages response buffers using size-specific ring buffers.
type respBufferManager struct {
	smallBuffers  *join.RingBuffer[[]byte] // < 1KB responses
	mediumBuffers *join.RingBuffer[[]byte] // 1KB - 8KB responses
	largeBuffers  *join.RingBuffer[[]byte] // 8KB - 64KB responses
	mu            sync.RWMutex             // protects buffer operations
}

// newRespBufferManager creates a new buffer manager.
func newRespBufferManager() *respBufferManager {
	return &respBufferManager{
		smallBuffers:  join.NewRingBuffer[[]byte](32), // 32 small buffers
		mediumBuffers: join.NewRingBuffer[[]byte](16), // 16 medium buffers
		largeBuffers:  join.NewRingBuffer[[]byte](8),  // 8 large buffers
	}
}

// getBuffer retrieves an appropriately sized buffer.
func (rbm *respBufferManager) getBuffer(required int) []byte {
	rbm.mu.RLock()
	defer rbm.mu.RUnlock()

	switch {
	case required <= 1024:
		if buf, ok := rbm.smallBuffers.Dequeue(); ok && cap(buf) >= required {
			return buf[:required]
		}

		return make([]byte, required, 1024)

	case required <= 8192:
		if buf, ok := rbm.mediumBuffers.Dequeue(); ok && cap(buf) >= required {
			return buf[:required]
		}

		return make([]byte, required, 8192)

	case required <= 65536:
		if buf, ok := rbm.largeBuffers.Dequeue(); ok && cap(buf) >= required {
			return buf[:required]
		}

		return make([]byte, required, 65536)

	default:
		// For very large buffers, don't pool them.
		return make([]byte, required)
	}
}

// returnBuffer returns a buffer to the appropriate ring buffer.
func (rbm *respBufferManager) returnBuffer(buf []byte) {
	if cap(buf) > 65536 {
		return // Don't pool very large buffers.
	}

	rbm.mu.Lock()
	defer rbm.mu.Unlock()

	// Reset buffer length to capacity for reuse.
	buf = buf[:cap(buf)]

	switch cap(buf) {
	case 1024:
		rbm.smallBuffers.Enqueue(buf)
	case 8192:
		rbm.mediumBuffers.Enqueue(buf)
	case 65536:
		rbm.largeBuffers.Enqueue(buf)
	}
}
