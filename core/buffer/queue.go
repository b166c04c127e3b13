// File: core/buffer/queue.go
// Package buffer implements the bounded outbound byte queue used per connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// Queue is a fixed-capacity FIFO of bytes backed by a head/tail ring.
// It never grows and never accepts a partial push. Not safe for concurrent use.
type Queue struct {
	buf  []byte
	head int // index of the first queued byte
	n    int // number of queued bytes
}

// NewQueue allocates a queue holding at most capacity bytes.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{buf: make([]byte, capacity)}
}

// Len returns the number of queued bytes.
func (q *Queue) Len() int { return q.n }

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Free returns the remaining capacity.
func (q *Queue) Free() int { return len(q.buf) - q.n }

// Push appends p in full and reports true, or leaves the queue untouched
// and reports false when p does not fit.
func (q *Queue) Push(p []byte) bool {
	if len(p) > q.Free() {
		return false
	}
	if len(p) == 0 {
		return true
	}
	tail := (q.head + q.n) % len(q.buf)
	c := copy(q.buf[tail:], p)
	if c < len(p) {
		copy(q.buf, p[c:])
	}
	q.n += len(p)
	return true
}

// Peek returns the longest contiguous run of queued bytes starting at the
// front. The slice aliases internal storage and is valid until the next Push.
func (q *Queue) Peek() []byte {
	if q.n == 0 {
		return nil
	}
	end := q.head + q.n
	if end > len(q.buf) {
		end = len(q.buf)
	}
	return q.buf[q.head:end]
}

// Discard drops the first n queued bytes.
func (q *Queue) Discard(n int) {
	if n <= 0 {
		return
	}
	if n >= q.n {
		q.Reset()
		return
	}
	q.head = (q.head + n) % len(q.buf)
	q.n -= n
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.head = 0
	q.n = 0
}
