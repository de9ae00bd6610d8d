package join

import (
	"sync"
)

// maxBufferSize is the maximum size of buffers that will be pooled.
const maxBufferSize = 64 * 1024 // 64KB

// bufferPool is a pool of byte slices for reuse.
type bufferPool struct {
	pools []*sync.Pool
}

// Global buffer pool instance.
var globalBufferPool = newBufferPool()

// newBufferPool creates a new buffer pool.
func newBufferPool() *bufferPool {
	bp := &bufferPool{
		pools: make([]*sync.Pool, 32), // Pool sizes from 32B to 64KB
	}

	for i := range bp.pools {
		size := 32 << uint(i) // 32, 64, 128, ..., 64KB
		if size > maxBufferSize {
			break
		}
		bp.pools[i] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}

	return bp
}

// getBuffer retrieves a buffer from the pool that is at least size bytes.
func (bp *bufferPool) getBuffer(size int) []byte {
	if size > maxBufferSize {
		return make([]byte, size)
	}

	// Find the smallest pool that fits the size
	poolIdx := 0
	poolSize := 32
	for poolSize < size {
		poolSize *= 2
		poolIdx++
	}

	return bp.pools[poolIdx].Get().([]byte)
}

// putBuffer returns a buffer to the pool. Returned buffers may have lost
// capacity to a stripped header, so the class is the largest pool size
// still covered by cap(buf); anything below the smallest class is dropped.
func (bp *bufferPool) putBuffer(buf []byte) {
	c := cap(buf)
	if c < 32 || c > maxBufferSize {
		return // Don't pool undersized or large buffers
	}

	// Find the largest pool that fits within the capacity
	poolIdx := 0
	poolSize := 32
	for poolSize*2 <= c {
		poolSize *= 2
		poolIdx++
	}

	bp.pools[poolIdx].Put(buf[:poolSize])
}

// GetBuffer retrieves a buffer of at least size bytes from the shared pool.
func GetBuffer(size int) []byte {
	return globalBufferPool.getBuffer(size)
}

// PutBuffer returns a buffer obtained from GetBuffer to the shared pool.
func PutBuffer(buf []byte) {
	globalBufferPool.putBuffer(buf)
}
