// File: bus/mux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SampleMux is the typed, multi-port I/O surface a block's process step
// sees (spec.md §3, §4.3). It is deliberately byte-granular at the
// interface boundary — Go interfaces cannot carry generic methods — with
// the ReadTyped/WriteTyped helpers in typed.go doing the
// byte-slice-to-[]T reinterpretation the teacher's v-table dispatch does
// with concrete types (compare core/concurrency's typed wrappers around
// byte buffers).
package bus

import "context"

// SampleMux is implemented by both the ring-buffer-backed production bus
// (Ring) and the in-memory test bus (Test).
type SampleMux interface {
	// NumInputs and NumOutputs report the port counts this mux was wired
	// with; the runner constructors check them against the block's
	// derived signature.
	NumInputs() int
	NumOutputs() int

	// ReadableBytes returns the currently readable byte run for input
	// port i. The run is not rounded to whole samples; rounding it down to
	// the element size the caller reinterprets it as is the caller's
	// responsibility (see typed.go).
	ReadableBytes(ctx context.Context, port int) ([]byte, error)
	// WritableBytes is the output-port analogue of ReadableBytes.
	WritableBytes(ctx context.Context, port int) ([]byte, error)

	// UpdateRead advances input port i's consumer cursor by nBytes.
	UpdateRead(port int, nBytes int)
	// UpdateWrite advances output port j's producer cursor by nBytes.
	UpdateWrite(port int, nBytes int)

	// SetEOF marks the bus end-of-stream. RingMux marks every input and
	// output ring; the in-memory Test bus keeps no EOF state and ignores it.
	SetEOF()
	// IsEOF reports whether any input port is end-of-stream and fully
	// drained (spec.md §4.3).
	IsEOF() bool
}
