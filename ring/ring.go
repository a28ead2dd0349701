// File: ring/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Byte-granular, single-producer/single-consumer ring buffer with an
// end-of-stream flag (spec.md §4.2). Head/tail are cache-line padded the
// way the teacher's lock-free queues are (core/concurrency/ring.go,
// internal/concurrency/lock_free_queue.go) to avoid false sharing between
// the one producer and one consumer goroutine.
//
// On Linux the backing buffer uses the classic "magic ring buffer" double
// mapping (memfd + two mmaps of the same pages) so that GetWriteSlice and
// GetReadSlice always return a single contiguous slice, even across
// wraparound. On other platforms (and on Linux if the double mapping
// fails) the buffer is a plain byte slice, and each slice runs from the
// cursor only up to the end of the buffer; the bytes past the wrap point
// are returned by a later call, once the cursor itself has wrapped.
package ring

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrNotPowerOfTwo and ErrBelowPageSize are returned by New for invalid
// capacities (spec.md §3 invariant: capacity must be a power of two and a
// multiple of the OS page size).
var (
	ErrNotPowerOfTwo = errors.New("ring: capacity must be a power of two")
	ErrBelowPageSize = errors.New("ring: capacity must be a multiple of the page size")

	// ErrEndOfStream is returned to a consumer that drains the last byte of
	// a ring whose EOF flag is set.
	ErrEndOfStream = errors.New("ring: end of stream")
	// ErrBrokenStream is returned to a producer stalled on a full ring
	// whose EOF flag gets set out from under it (spec.md §4.2).
	ErrBrokenStream = errors.New("ring: broken stream")
)

const cacheLinePad = 64

// Ring is a byte-addressed SPSC FIFO.
type Ring struct {
	head atomic.Uint64 // producer-owned
	_    [cacheLinePad - 8]byte
	tail atomic.Uint64 // consumer-owned
	_    [cacheLinePad - 8]byte

	capacity uint64
	mask     uint64
	mirrored bool
	buf      []byte
	closeFn  func() error

	eof      atomic.Bool
	notEmpty chan struct{}
	notFull  chan struct{}
}

// New allocates a ring of the given capacity in bytes. capacity must be a
// power of two and a multiple of the OS page size.
func New(capacity uint64) (*Ring, error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrNotPowerOfTwo
	}
	if capacity%uint64(pageSize()) != 0 {
		return nil, ErrBelowPageSize
	}
	buf, closeFn, err := allocateMirrored(capacity)
	if err != nil {
		return nil, err
	}
	r := &Ring{
		capacity: capacity,
		mask:     capacity - 1,
		mirrored: uint64(len(buf)) == 2*capacity,
		buf:      buf,
		closeFn:  closeFn,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
	return r, nil
}

// Close releases the backing mapping. Not safe to call concurrently with
// producer/consumer operations.
func (r *Ring) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// Capacity returns the ring's fixed byte capacity.
func (r *Ring) Capacity() uint64 { return r.capacity }

func (r *Ring) used() uint64 {
	return r.head.Load() - r.tail.Load()
}

func (r *Ring) free() uint64 {
	return r.capacity - r.used()
}

// GetWriteSlice returns the producer's currently writable bytes, from head
// to head+free, as one contiguous slice (spec.md §4.2). Without the
// mirrored mapping the slice stops at the end of the buffer.
func (r *Ring) GetWriteSlice() []byte {
	head := r.head.Load()
	free := r.capacity - (head - r.tail.Load())
	if free == 0 {
		return nil
	}
	idx := head & r.mask
	if r.mirrored {
		return r.buf[idx : idx+free]
	}
	run := r.capacity - idx
	if run > free {
		run = free
	}
	return r.buf[idx : idx+run]
}

// UpdateWrite advances head by n bytes, publishing them to the consumer,
// and wakes a consumer blocked on an empty ring.
func (r *Ring) UpdateWrite(n int) {
	if n <= 0 {
		return
	}
	wasEmpty := r.used() == 0
	r.head.Add(uint64(n))
	if wasEmpty {
		notify(r.notEmpty)
	}
}

// GetReadSlice returns the consumer's currently readable bytes, from tail
// to tail+used, as one contiguous slice. Without the mirrored mapping the
// slice stops at the end of the buffer.
func (r *Ring) GetReadSlice() []byte {
	tail := r.tail.Load()
	used := r.head.Load() - tail
	if used == 0 {
		return nil
	}
	idx := tail & r.mask
	if r.mirrored {
		return r.buf[idx : idx+used]
	}
	run := r.capacity - idx
	if run > used {
		run = used
	}
	return r.buf[idx : idx+run]
}

// UpdateRead advances tail by n bytes, releasing space to the producer,
// and wakes a producer blocked on a full ring.
func (r *Ring) UpdateRead(n int) {
	if n <= 0 {
		return
	}
	wasFull := r.free() == 0
	r.tail.Add(uint64(n))
	if wasFull {
		notify(r.notFull)
	}
}

// SetEOF marks the stream closed and wakes any waiters on both edges.
func (r *Ring) SetEOF() {
	r.eof.Store(true)
	notify(r.notEmpty)
	notify(r.notFull)
}

// IsEOF reports whether SetEOF has been called. It does not by itself mean
// the ring is drained — callers wanting "fully drained and closed" should
// use WaitReadable and check for ErrEndOfStream.
func (r *Ring) IsEOF() bool { return r.eof.Load() }

// WaitReadable blocks until at least one byte is available, the stream
// ends (returning ErrEndOfStream once drained), or ctx is done.
func (r *Ring) WaitReadable(ctx context.Context) error {
	for {
		if r.used() > 0 {
			return nil
		}
		if r.eof.Load() {
			return ErrEndOfStream
		}
		select {
		case <-r.notEmpty:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitWritable blocks until at least one byte of free space is available,
// the stream breaks from under the producer (ErrBrokenStream), or ctx is
// done.
func (r *Ring) WaitWritable(ctx context.Context) error {
	for {
		if r.free() > 0 {
			return nil
		}
		if r.eof.Load() {
			return ErrBrokenStream
		}
		select {
		case <-r.notFull:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
