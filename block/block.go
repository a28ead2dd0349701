// File: block/block.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Block is the uniform wrapper around an arbitrary user struct whose
// process method carries the block's static type signature (spec.md §3,
// §4.4). Construction binds a v-table: present optional lifecycle methods
// (Initialize/Deinitialize/SetRate/Start/Stop) become present entries,
// absent ones become no-ops — checked via interface assertion, the
// idiomatic Go analogue of the original's by-name method binding.
package block

import (
	"context"
	"fmt"
	"sync"

	"github.com/momentics/sigflow/bus"
	"github.com/momentics/sigflow/control"
	"github.com/momentics/sigflow/dtype"
	"github.com/momentics/sigflow/pool"
)

// State is a block's lifecycle stage (spec.md §4.4 State machine).
type State int

const (
	Constructed State = iota
	RateSet
	Initialized
	Running
	Stopped
	Deinitialized
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "Constructed"
	case RateSet:
		return "RateSet"
	case Initialized:
		return "Initialized"
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Deinitialized:
		return "Deinitialized"
	default:
		return "Unknown"
	}
}

// Allocator is passed to Initialize/Deinitialize (spec.md §3 Lifecycle).
type Allocator = pool.BufferPoolManager

// Initializer, Deinitializer, RateSetter, Starter and Stopper are the
// optional lifecycle hooks a user block type may implement. A block
// lacking one of these gets a no-op v-table entry for it.
type Initializer interface {
	Initialize(alloc *Allocator) error
}
type Deinitializer interface {
	Deinitialize(alloc *Allocator)
}
type RateSetter interface {
	SetRate(parentRate float64) float64
}
type Starter interface {
	Start(mux bus.SampleMux) error
}
type Stopper interface {
	Stop() error
}

// Named is an optional hook letting a block report a human-readable name
// used in error messages and debug probes; falls back to a generic label.
type Named interface {
	Name() string
}

type processFn func(ctx context.Context, mux bus.SampleMux) (Result, error)

// Block wraps a type-erased user instance together with its derived
// signature and bound v-table.
type Block struct {
	mu sync.Mutex

	name      string
	instance  any
	signature dtype.Signature
	rate      float64
	state     State

	processImpl processFn
	initImpl    func(*Allocator) error
	deinitImpl  func(*Allocator)
	setRateImpl func(float64) float64
	startImpl   func(bus.SampleMux) error
	stopImpl    func() error
}

func newBlock(name string, instance any, sig dtype.Signature, proc processFn) *Block {
	b := &Block{
		name:        name,
		instance:    instance,
		signature:   sig,
		state:       Constructed,
		processImpl: proc,
	}
	if init, ok := instance.(Initializer); ok {
		b.initImpl = init.Initialize
	}
	if deinit, ok := instance.(Deinitializer); ok {
		b.deinitImpl = deinit.Deinitialize
	}
	if rs, ok := instance.(RateSetter); ok {
		b.setRateImpl = rs.SetRate
	}
	if st, ok := instance.(Starter); ok {
		b.startImpl = st.Start
	}
	if sp, ok := instance.(Stopper); ok {
		b.stopImpl = sp.Stop
	}
	if n, ok := instance.(Named); ok {
		b.name = n.Name()
	} else if b.name == "" {
		b.name = fmt.Sprintf("%T", instance)
	}
	return b
}

// Name returns the block's label (defaults to the instance's Go type name
// if the instance does not implement Named).
func (b *Block) Name() string { return b.name }

// Signature returns the block's derived, ordered input/output tag lists.
func (b *Block) Signature() dtype.Signature { return b.signature }

// Rate returns the block's current sample rate (0 until SetRate runs).
func (b *Block) Rate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate
}

// State returns the block's current lifecycle stage.
func (b *Block) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Instance returns the type-erased user struct, for callers (e.g. Runner's
// out-of-band Call) that need to invoke auxiliary methods on it directly.
func (b *Block) Instance() any { return b.instance }

// SetRate propagates the upstream rate. A block without a custom SetRate
// adopts it unchanged (spec.md §4.4 Rate propagation); a block with one
// decides its own output rate.
func (b *Block) SetRate(parentRate float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Constructed {
		panic(fmt.Sprintf("block %s: SetRate called out of order (state=%s)", b.name, b.state))
	}
	if b.setRateImpl != nil {
		b.rate = b.setRateImpl(parentRate)
	} else {
		b.rate = parentRate
	}
	b.state = RateSet
	control.TriggerHotReload()
	return b.rate
}

// Initialize runs the block's optional Initialize hook exactly once.
func (b *Block) Initialize(alloc *Allocator) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != RateSet && b.state != Constructed {
		panic(fmt.Sprintf("block %s: Initialize called out of order (state=%s)", b.name, b.state))
	}
	if b.initImpl != nil {
		if err := b.initImpl(alloc); err != nil {
			return &Error{Block: b.name, Stage: "initialize", Err: err}
		}
	}
	b.state = Initialized
	return nil
}

// Start runs the optional Start hook (raw blocks only; spec.md §3
// Lifecycle: "Raw blocks additionally receive start(bus) before any
// processing").
func (b *Block) Start(mux bus.SampleMux) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startImpl != nil {
		if err := b.startImpl(mux); err != nil {
			return &Error{Block: b.name, Stage: "start", Err: err}
		}
	}
	b.state = Running
	return nil
}

// Process invokes the bound typed process shim once.
func (b *Block) Process(ctx context.Context, mux bus.SampleMux) (Result, error) {
	b.mu.Lock()
	if b.state == Initialized {
		b.state = Running
	}
	b.mu.Unlock()
	return b.processImpl(ctx, mux)
}

// Stop runs the optional Stop hook (raw blocks).
func (b *Block) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if b.stopImpl != nil {
		err = b.stopImpl()
	}
	b.state = Stopped
	return err
}

// Deinitialize runs the optional Deinitialize hook exactly once, only if
// Initialize succeeded.
func (b *Block) Deinitialize(alloc *Allocator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Constructed || b.state == RateSet {
		return // Initialize never ran (or never succeeded)
	}
	if b.state == Deinitialized {
		return // already deinitialized
	}
	if b.deinitImpl != nil {
		b.deinitImpl(alloc)
	}
	b.state = Deinitialized
}
