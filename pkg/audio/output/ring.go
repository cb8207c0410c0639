// ABOUTME: Thread-safe circular buffer of int32 samples
// ABOUTME: Sits between the push-side Player and the driver's pull callback
package output

import "sync"

// RingBuffer provides thread-safe circular buffer for audio samples
type RingBuffer struct {
	buffer   []int32
	readPos  int
	writePos int
	count    int // Number of samples currently in buffer
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]int32, max(capacity, 1)),
	}
}

// Write adds as many samples as fit and returns how many were taken
func (rb *RingBuffer) Write(samples []int32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(samples), len(rb.buffer)-rb.count)
	for written := 0; written < n; {
		c := copy(rb.buffer[rb.writePos:], samples[written:n])
		written += c
		rb.writePos = (rb.writePos + c) % len(rb.buffer)
	}
	rb.count += n
	return n
}

// Read retrieves up to len(samples) samples. Unfilled slots are left untouched.
func (rb *RingBuffer) Read(samples []int32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(samples), rb.count)
	for read := 0; read < n; {
		end := min(rb.readPos+n-read, len(rb.buffer))
		c := copy(samples[read:], rb.buffer[rb.readPos:end])
		read += c
		rb.readPos = (rb.readPos + c) % len(rb.buffer)
	}
	rb.count -= n
	return n
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free slots in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.buffer) - rb.count
}

// Capacity returns the buffer size in samples
func (rb *RingBuffer) Capacity() int {
	return len(rb.buffer)
}

// Reset drops everything buffered
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos, rb.writePos, rb.count = 0, 0, 0
}
