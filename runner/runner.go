// File: runner/runner.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package runner drives a block.Block to exhaustion, either inline on the
// caller's own goroutine (Raw, for blocks that drive themselves via
// start/stop) or on a dedicated worker goroutine that repeatedly calls
// block.Process (Threaded). Both runner kinds share the small Runner
// surface; spawn/stop/join/call/get_error mirror spec.md §4.5's Runner
// API onto Go's goroutine/channel idiom the way the teacher's
// core/concurrency package drives its own worker loops.
package runner

import "github.com/momentics/sigflow/bus"

// Runner is the uniform driving interface both runner kinds satisfy.
type Runner interface {
	// Spawn starts the runner. For Raw this calls the block's start(bus)
	// hook; for Threaded this launches the worker goroutine.
	Spawn() error
	// Stop requests cooperative shutdown; observed between iterations.
	Stop() error
	// Join blocks until the runner has fully stopped. For Raw it does not
	// block; it only marks the runner not-running.
	Join()
	// Call executes fn against the block's underlying instance, safely
	// serialized against the process loop (spec.md §4.5 Out-of-band
	// calls). Raw runners execute fn immediately — there is no process
	// loop to serialize against.
	Call(fn func(instance any) (any, error)) (any, error)
	// GetError returns the terminal error, if any, once the runner has
	// stopped. Nil while running or on clean EOF shutdown.
	GetError() error
}

// validatePorts is shared by both runner constructors: it panics if the
// bus's port counts do not match the block's signature.
func validatePorts(mux bus.SampleMux, numIn, numOut int) {
	if mux.NumInputs() != numIn || mux.NumOutputs() != numOut {
		panic("runner: bus port count does not match block signature")
	}
}
