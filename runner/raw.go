// File: runner/raw.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RawRunner drives a block whose process method is absent and whose work
// is self-driven (spec.md §4.5 Raw runner): spawn calls the block's own
// start(bus), which presumably launches its own internal thread; stop
// calls the block's stop(); join is a no-op beyond marking not-running.
package runner

import (
	"sync"

	"github.com/momentics/sigflow/block"
	"github.com/momentics/sigflow/bus"
)

// RawRunner wraps a raw block (one constructed without a typed process
// shim — spec.md §4.4 Construction, "a raw block variant ... uses
// start(bus)/stop() instead").
type RawRunner struct {
	mu      sync.Mutex
	block   *block.Block
	mux     bus.SampleMux
	running bool
	err     error
}

var _ Runner = (*RawRunner)(nil)

// NewRawRunner binds a raw block to its bus. The caller must have already
// run block.SetRate and block.Initialize.
func NewRawRunner(b *block.Block, mux bus.SampleMux) *RawRunner {
	validatePorts(mux, b.Signature().NumInputs(), b.Signature().NumOutputs())
	return &RawRunner{block: b, mux: mux}
}

// Spawn calls the block's start(bus) hook exactly once.
func (r *RawRunner) Spawn() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	if err := r.block.Start(r.mux); err != nil {
		r.err = err
		return err
	}
	r.running = true
	return nil
}

// Stop calls the block's stop() hook. Per spec.md §4.5 Open Question, the
// raw runner standardizes on GetError()'s "None unless its inner thread
// surfaces one": a stop() error is recorded the same as a start() error.
func (r *RawRunner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil // Runner.stop after join is a no-op (spec.md §6)
	}
	err := r.block.Stop()
	r.running = false
	if err != nil {
		r.err = err
	}
	return err
}

// Join is a no-op for RawRunner beyond reflecting not-running state — the
// block's own internal thread (started by start(bus)) is outside this
// runner's control.
func (r *RawRunner) Join() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

// Call invokes fn directly; there is no worker loop to serialize against.
func (r *RawRunner) Call(fn func(instance any) (any, error)) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.block.Instance())
}

// GetError returns the last start/stop error, if any.
func (r *RawRunner) GetError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
