// File: bus/ring_mux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingMux is the production SampleMux: each port is backed by one SPSC
// ring.Ring, owned by exactly one producer/consumer (spec.md §3 invariant
// 1).
package bus

import (
	"context"

	"github.com/momentics/sigflow/ring"
)

// RingMux multiplexes n_in input rings and n_out output rings behind one
// SampleMux.
type RingMux struct {
	inputs  []*ring.Ring
	outputs []*ring.Ring
}

// NewRingMux wires the given input and output rings into a bus. Each ring
// must already be sized to a multiple of the largest element size that
// will traverse it (spec.md §3 invariant 2) — that sizing happens at
// wiring time, outside this core.
func NewRingMux(inputs, outputs []*ring.Ring) *RingMux {
	return &RingMux{inputs: inputs, outputs: outputs}
}

func (m *RingMux) NumInputs() int  { return len(m.inputs) }
func (m *RingMux) NumOutputs() int { return len(m.outputs) }

func (m *RingMux) ReadableBytes(ctx context.Context, port int) ([]byte, error) {
	r := m.inputs[port]
	if err := r.WaitReadable(ctx); err != nil {
		if err == ring.ErrEndOfStream {
			return r.GetReadSlice(), nil // may be empty; caller sees len==0
		}
		return nil, err
	}
	return r.GetReadSlice(), nil
}

func (m *RingMux) WritableBytes(ctx context.Context, port int) ([]byte, error) {
	r := m.outputs[port]
	if err := r.WaitWritable(ctx); err != nil {
		return nil, err
	}
	return r.GetWriteSlice(), nil
}

func (m *RingMux) UpdateRead(port int, nBytes int) {
	m.inputs[port].UpdateRead(nBytes)
}

func (m *RingMux) UpdateWrite(port int, nBytes int) {
	m.outputs[port].UpdateWrite(nBytes)
}

// SetEOF marks every input and output ring end-of-stream (spec.md §4.3,
// §7: "fail downstream producers with BrokenStream on their next write
// attempt"). Inputs are marked too, not just outputs: the ring backing an
// input port is some upstream block's output ring, and that upstream
// producer is the one blocked in WaitWritable — only setting the flag on
// this ring wakes it and turns its next full-buffer wait into
// ErrBrokenStream instead of a permanent stall.
func (m *RingMux) SetEOF() {
	for _, r := range m.inputs {
		r.SetEOF()
	}
	for _, r := range m.outputs {
		r.SetEOF()
	}
}

// IsEOF reports whether any input ring is end-of-stream and fully
// drained (spec.md §4.3).
func (m *RingMux) IsEOF() bool {
	for _, r := range m.inputs {
		if r.IsEOF() && len(r.GetReadSlice()) == 0 {
			return true
		}
	}
	return false
}
