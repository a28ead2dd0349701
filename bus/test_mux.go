// File: bus/test_mux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Test is the in-memory SampleMux used by the test suite to flush out
// batching bugs: SingleInputSamples/SingleOutputSamples force a block to
// process one sample at a time instead of whole vectors at once, and both
// modes must produce identical output (spec.md §4.3, §8 round-trip
// property).
package bus

import "context"

const defaultTestChunkBytes = 4096

// Test is a non-blocking, byte-vector-backed SampleMux for unit tests.
type Test struct {
	inputs        [][]byte
	inputPos      []int
	inputElemSize []int

	outputs        [][]byte
	outputElemSize []int
	outScratch     [][]byte

	// SingleInputSamples, when true, caps every ReadableBytes call to at
	// most one sample (using the per-port element size supplied at
	// construction).
	SingleInputSamples bool
	// SingleOutputSamples is the output-port analogue.
	SingleOutputSamples bool
}

// NewTest builds a test bus. inputs holds one byte vector per input port;
// inputElemSize/outputElemSize give sizeof(T) for each port, used only to
// implement the single-sample knobs above.
func NewTest(inputs [][]byte, inputElemSize []int, numOutputs int, outputElemSize []int) *Test {
	return &Test{
		inputs:         inputs,
		inputPos:       make([]int, len(inputs)),
		inputElemSize:  inputElemSize,
		outputs:        make([][]byte, numOutputs),
		outputElemSize: outputElemSize,
		outScratch:     make([][]byte, numOutputs),
	}
}

func (t *Test) NumInputs() int  { return len(t.inputs) }
func (t *Test) NumOutputs() int { return len(t.outputs) }

func (t *Test) ReadableBytes(_ context.Context, port int) ([]byte, error) {
	remaining := t.inputs[port][t.inputPos[port]:]
	if len(remaining) == 0 {
		return nil, nil
	}
	if t.SingleInputSamples {
		sz := t.inputElemSize[port]
		if sz > len(remaining) {
			sz = len(remaining)
		}
		return remaining[:sz], nil
	}
	return remaining, nil
}

func (t *Test) UpdateRead(port int, nBytes int) {
	t.inputPos[port] += nBytes
}

func (t *Test) WritableBytes(_ context.Context, port int) ([]byte, error) {
	sz := defaultTestChunkBytes
	if t.SingleOutputSamples {
		sz = t.outputElemSize[port]
	}
	scratch := make([]byte, sz)
	t.outScratch[port] = scratch
	return scratch, nil
}

func (t *Test) UpdateWrite(port int, nBytes int) {
	if nBytes <= 0 {
		return
	}
	t.outputs[port] = append(t.outputs[port], t.outScratch[port][:nBytes]...)
}

func (t *Test) SetEOF() {}

// IsEOF reports whether any input port's backing vector has been fully
// consumed. Test inputs are finite byte vectors, so exhaustion is the
// natural analogue of a drained, closed ring.
func (t *Test) IsEOF() bool {
	if len(t.inputs) == 0 {
		return false // a source has nothing to be end-of-stream about
	}
	for i, pos := range t.inputPos {
		if pos >= len(t.inputs[i]) {
			return true
		}
	}
	return false
}

// Output returns the committed bytes written so far to output port j.
func (t *Test) Output(port int) []byte { return t.outputs[port] }
