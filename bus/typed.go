// File: bus/typed.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic helpers converting a SampleMux's byte-granular ports into typed
// sample slices without runtime type checks — the type erasure approach
// Design Notes §9 calls for: the generic wrapper converts byte slices to
// typed slices relying on signature agreement enforced at block
// construction, not at every call.
package bus

import (
	"context"
	"unsafe"

	"github.com/momentics/sigflow/dtype"
)

// ReadTyped returns input port i's currently readable samples of type T.
// Byte runs are rounded down to whole samples (spec.md §3 Sample slot);
// any trailing partial-sample bytes are never exposed and stay in the
// ring for the next call.
func ReadTyped[T any](ctx context.Context, mux SampleMux, port int) ([]T, error) {
	raw, err := mux.ReadableBytes(ctx, port)
	if err != nil {
		return nil, err
	}
	return bytesToTyped[T](raw), nil
}

// WriteTyped is the output-port analogue of ReadTyped.
func WriteTyped[T any](ctx context.Context, mux SampleMux, port int) ([]T, error) {
	raw, err := mux.WritableBytes(ctx, port)
	if err != nil {
		return nil, err
	}
	return bytesToTyped[T](raw), nil
}

func bytesToTyped[T any](raw []byte) []T {
	if len(raw) == 0 {
		return nil
	}
	sz := dtype.SizeOf[T]()
	n := len(raw) / sz
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n)
}

// UpdateReadSamples converts a sample count to bytes for port i.
func UpdateReadSamples[T any](mux SampleMux, port int, n int) {
	mux.UpdateRead(port, n*dtype.SizeOf[T]())
}

// UpdateWriteSamples is the output-port analogue of UpdateReadSamples.
func UpdateWriteSamples[T any](mux SampleMux, port int, n int) {
	mux.UpdateWrite(port, n*dtype.SizeOf[T]())
}
