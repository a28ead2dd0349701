// File: block/constructors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Arity-specific generic constructors. Each one is the Go-idiomatic stand-in
// for the original's compile-time reflection over a process method's
// parameter list (SPEC_FULL §4): the constructor's own type parameters are
// resolved at the call site, so the derived Signature is fixed before any
// instance of the block exists, exactly like a declared descriptor would
// be.
//
// Every shim applies one extra rule beyond spec.md §4.4's literal process
// dispatch: if every input port reads zero samples on this call AND the
// bus reports IsEOF (all inputs permanently drained), the shim forces
// Result.EOF=true regardless of what the block itself returned. Without
// this, a transform/sink downstream of an exhausted, closed ring would
// spin forever re-observing "zero consumed, zero produced, not EOF" — the
// Capability note in spec.md §4.3 says the runner treats that as "make
// progress elsewhere", which is correct for pipelines with multiple
// blocks per runner but never terminates a single-block ThreadedRunner on
// its own. Sources (zero inputs) are exempt: spec.md §8 requires them to
// "run forever until stopped", so only the source's own Process decides.
package block

import (
	"context"
	"errors"

	"github.com/momentics/sigflow/bus"
	"github.com/momentics/sigflow/dtype"
	"github.com/momentics/sigflow/ring"
)

func translateBusErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ring.ErrBrokenStream) {
		return ErrBrokenStream
	}
	return err
}

// Source1 is implemented by a block with zero inputs and one output.
type Source1[Out any] interface {
	Process(out []Out) (Result, error)
}

// NewSource constructs a Block around a Source1 instance.
func NewSource[U Source1[Out], Out any](instance U) *Block {
	sig := dtype.Signature{Outputs: []dtype.Tag{dtype.TagOf[Out]()}}
	proc := func(ctx context.Context, mux bus.SampleMux) (Result, error) {
		out, err := bus.WriteTyped[Out](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		res, err := instance.Process(out)
		if err != nil {
			return Result{}, err
		}
		if len(res.Produced) > 0 {
			bus.UpdateWriteSamples[Out](mux, 0, res.Produced[0])
		}
		return res, nil
	}
	return newBlock("", instance, sig, proc)
}

// Sink1 is implemented by a block with one input and zero outputs.
type Sink1[In any] interface {
	Process(in []In) (Result, error)
}

// NewSink constructs a Block around a Sink1 instance.
func NewSink[U Sink1[In], In any](instance U) *Block {
	sig := dtype.Signature{Inputs: []dtype.Tag{dtype.TagOf[In]()}}
	proc := func(ctx context.Context, mux bus.SampleMux) (Result, error) {
		in, err := bus.ReadTyped[In](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		res, err := instance.Process(in)
		if err != nil {
			return Result{}, err
		}
		if len(res.Consumed) > 0 {
			bus.UpdateReadSamples[In](mux, 0, res.Consumed[0])
		}
		if len(in) == 0 && mux.IsEOF() {
			res.EOF = true
		}
		return res, nil
	}
	return newBlock("", instance, sig, proc)
}

// Transform1x1 is implemented by a block with one input and one output.
type Transform1x1[In, Out any] interface {
	Process(in []In, out []Out) (Result, error)
}

// NewTransform constructs a Block around a Transform1x1 instance.
func NewTransform[U Transform1x1[In, Out], In, Out any](instance U) *Block {
	sig := dtype.Signature{
		Inputs:  []dtype.Tag{dtype.TagOf[In]()},
		Outputs: []dtype.Tag{dtype.TagOf[Out]()},
	}
	proc := func(ctx context.Context, mux bus.SampleMux) (Result, error) {
		in, err := bus.ReadTyped[In](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		out, err := bus.WriteTyped[Out](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		res, err := instance.Process(in, out)
		if err != nil {
			return Result{}, err
		}
		if len(res.Consumed) > 0 {
			bus.UpdateReadSamples[In](mux, 0, res.Consumed[0])
		}
		if len(res.Produced) > 0 {
			bus.UpdateWriteSamples[Out](mux, 0, res.Produced[0])
		}
		if len(in) == 0 && mux.IsEOF() {
			res.EOF = true
		}
		return res, nil
	}
	return newBlock("", instance, sig, proc)
}

// Combiner2x1 is implemented by a block with two inputs and one output
// (e.g. an adder or complex subtractor, spec.md §8 scenarios 1-2).
type Combiner2x1[In1, In2, Out any] interface {
	Process(in1 []In1, in2 []In2, out []Out) (Result, error)
}

// NewCombiner2x1 constructs a Block around a Combiner2x1 instance.
func NewCombiner2x1[U Combiner2x1[In1, In2, Out], In1, In2, Out any](instance U) *Block {
	sig := dtype.Signature{
		Inputs:  []dtype.Tag{dtype.TagOf[In1](), dtype.TagOf[In2]()},
		Outputs: []dtype.Tag{dtype.TagOf[Out]()},
	}
	proc := func(ctx context.Context, mux bus.SampleMux) (Result, error) {
		in1, err := bus.ReadTyped[In1](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		in2, err := bus.ReadTyped[In2](ctx, mux, 1)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		out, err := bus.WriteTyped[Out](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		res, err := instance.Process(in1, in2, out)
		if err != nil {
			return Result{}, err
		}
		if len(res.Consumed) > 0 {
			bus.UpdateReadSamples[In1](mux, 0, res.Consumed[0])
		}
		if len(res.Consumed) > 1 {
			bus.UpdateReadSamples[In2](mux, 1, res.Consumed[1])
		}
		if len(res.Produced) > 0 {
			bus.UpdateWriteSamples[Out](mux, 0, res.Produced[0])
		}
		if len(in1) == 0 && len(in2) == 0 && mux.IsEOF() {
			res.EOF = true
		}
		return res, nil
	}
	return newBlock("", instance, sig, proc)
}

// NewRaw constructs a Block for a raw block (spec.md §4.4 Construction):
// one whose work is self-driven via start(bus)/stop() instead of a typed
// process method — its internal threading is private to the instance.
// Since there is no process signature to derive tags from, the caller
// declares them explicitly.
func NewRaw[U any](instance U, inputs, outputs []dtype.Tag) *Block {
	sig := dtype.Signature{Inputs: inputs, Outputs: outputs}
	proc := func(ctx context.Context, mux bus.SampleMux) (Result, error) {
		panic("block: raw block has no process method; drive it with a RawRunner")
	}
	return newBlock("", instance, sig, proc)
}

// Splitter1x2 is implemented by a block with one input and two outputs.
type Splitter1x2[In, Out1, Out2 any] interface {
	Process(in []In, out1 []Out1, out2 []Out2) (Result, error)
}

// NewSplitter1x2 constructs a Block around a Splitter1x2 instance.
func NewSplitter1x2[U Splitter1x2[In, Out1, Out2], In, Out1, Out2 any](instance U) *Block {
	sig := dtype.Signature{
		Inputs:  []dtype.Tag{dtype.TagOf[In]()},
		Outputs: []dtype.Tag{dtype.TagOf[Out1](), dtype.TagOf[Out2]()},
	}
	proc := func(ctx context.Context, mux bus.SampleMux) (Result, error) {
		in, err := bus.ReadTyped[In](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		out1, err := bus.WriteTyped[Out1](ctx, mux, 0)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		out2, err := bus.WriteTyped[Out2](ctx, mux, 1)
		if err != nil {
			return Result{}, translateBusErr(err)
		}
		res, err := instance.Process(in, out1, out2)
		if err != nil {
			return Result{}, err
		}
		if len(res.Consumed) > 0 {
			bus.UpdateReadSamples[In](mux, 0, res.Consumed[0])
		}
		if len(res.Produced) > 0 {
			bus.UpdateWriteSamples[Out1](mux, 0, res.Produced[0])
		}
		if len(res.Produced) > 1 {
			bus.UpdateWriteSamples[Out2](mux, 1, res.Produced[1])
		}
		if len(in) == 0 && mux.IsEOF() {
			res.EOF = true
		}
		return res, nil
	}
	return newBlock("", instance, sig, proc)
}
