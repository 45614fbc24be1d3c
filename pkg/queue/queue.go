// Package queue implements the fixed-capacity byte queue that connects the
// two cores. It is lock-free and supports exactly one producer and one
// consumer: the write cursor is only ever stored by the Producer and the
// read cursor only ever by the Consumer.
package queue

import (
	"errors"
	"sync/atomic"
)

// Capacity is the size of the queue's backing storage in bytes.
const Capacity = 128

var (
	// ErrFull is returned when a write does not fit in the free space.
	ErrFull = errors.New("queue full")
	// ErrTooLarge is returned when a write could never fit.
	ErrTooLarge = errors.New("write larger than queue capacity")
	// ErrAlreadySplit is returned by Split after the first call.
	ErrAlreadySplit = errors.New("queue already split")
)

// Queue is the shared state. Create one value at startup, call Split once
// and hand the two ends to their owners.
type Queue struct {
	buf [Capacity]byte

	// Free-running cursors. Occupancy is write-read, which stays correct
	// across uint32 wraparound.
	write atomic.Uint32
	read  atomic.Uint32

	split atomic.Bool
}

// Producer is the exclusive write end.
type Producer struct {
	q *Queue
}

// Consumer is the exclusive read end.
type Consumer struct {
	q *Queue
}

// Grant is a contiguous view of readable bytes.
type Grant struct {
	c   *Consumer
	buf []byte
}

// Split returns the two ends of the queue. It succeeds only once.
func (q *Queue) Split() (*Producer, *Consumer, error) {
	if !q.split.CompareAndSwap(false, true) {
		return nil, nil, ErrAlreadySplit
	}
	return &Producer{q: q}, &Consumer{q: q}, nil
}

// Free returns the number of bytes that can currently be written.
func (p *Producer) Free() int {
	w := p.q.write.Load()
	r := p.q.read.Load()
	return Capacity - int(w-r)
}

// TryWrite copies all of b into the queue or nothing at all.
func (p *Producer) TryWrite(b []byte) error {
	if len(b) > Capacity {
		return ErrTooLarge
	}
	if len(b) == 0 {
		return nil
	}

	w := p.q.write.Load()
	r := p.q.read.Load()
	if Capacity-int(w-r) < len(b) {
		return ErrFull
	}

	start := int(w % Capacity)
	n := copy(p.q.buf[start:], b)
	copy(p.q.buf[:], b[n:])

	// Publish only after the bytes are in place.
	p.q.write.Store(w + uint32(len(b)))
	return nil
}

// Len returns the number of committed bytes not yet released.
func (c *Consumer) Len() int {
	w := c.q.write.Load()
	r := c.q.read.Load()
	return int(w - r)
}

// TryRead returns the longest contiguous run of committed bytes. It reports
// false when the queue is empty. When the data wraps around the end of the
// storage only the first part is returned; the rest is available after the
// grant is released.
func (c *Consumer) TryRead() (Grant, bool) {
	r := c.q.read.Load()
	w := c.q.write.Load()
	used := int(w - r)
	if used == 0 {
		return Grant{}, false
	}

	start := int(r % Capacity)
	end := start + used
	if end > Capacity {
		end = Capacity
	}
	return Grant{c: c, buf: c.q.buf[start:end]}, true
}

// Bytes returns the readable view. It is valid until Release.
func (g Grant) Bytes() []byte {
	return g.buf
}

// Len returns the length of the view.
func (g Grant) Len() int {
	return len(g.buf)
}

// Release marks the first n bytes of the grant as consumed. Values larger
// than the grant are clamped.
func (g Grant) Release(n int) {
	if g.c == nil || n <= 0 {
		return
	}
	if n > len(g.buf) {
		n = len(g.buf)
	}
	r := g.c.q.read.Load()
	g.c.q.read.Store(r + uint32(n))
}
