// File: refcount/ref.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic reference-counted wrapper for sample types with costly shared
// payloads (spec.md §9 Design Notes). Participates in the dtype tag scheme
// via TypeName().

package refcount

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/sigflow/dtype"
)

// Ref wraps a value of type T behind an atomic count. The release callback
// runs exactly once, when the count drops to zero.
type Ref[T any] struct {
	count   atomic.Int64
	value   T
	release func(T)
}

// New constructs a Ref with an initial count of 1. release may be nil.
func New[T any](value T, release func(T)) *Ref[T] {
	r := &Ref[T]{value: value, release: release}
	r.count.Store(1)
	return r
}

// Value returns the wrapped payload. Callers must hold a reference.
func (r *Ref[T]) Value() T { return r.value }

// Ref increments the count by n and returns the receiver for chaining.
func (r *Ref[T]) Ref(n int64) *Ref[T] {
	r.count.Add(n)
	return r
}

// Unref decrements the count by one, releasing the payload at zero.
func (r *Ref[T]) Unref() {
	if r.count.Add(-1) == 0 && r.release != nil {
		r.release(r.value)
	}
}

// Count returns the current reference count (diagnostic use only).
func (r *Ref[T]) Count() int64 { return r.count.Load() }

// TypeName implements dtype.TypeNamer, e.g. "RefCounted(Unsigned32)".
func (r *Ref[T]) TypeName() string {
	return fmt.Sprintf("RefCounted(%s)", dtype.TagOf[T]())
}
