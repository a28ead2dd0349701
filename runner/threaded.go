// File: runner/threaded.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadedRunner owns one worker goroutine that repeatedly calls
// block.Process(bus) until EOF, a broken/process error, or Stop
// (spec.md §4.5 Threaded runner, §5 Scheduling model: "one OS thread per
// Threaded runner"). Out-of-band Call requests are queued and drained
// between iterations under the same mutex that guards a process call, so
// a call is never interleaved within a single process invocation
// (spec.md §4.5 Out-of-band calls, ordering guarantee).
package runner

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/sigflow/affinity"
	"github.com/momentics/sigflow/block"
	"github.com/momentics/sigflow/bus"
	"github.com/momentics/sigflow/control"
	"github.com/momentics/sigflow/pool"
)

// callRequest is one pending out-of-band call, queued FIFO so concurrent
// callers are served in arrival order rather than racing the worker's
// mutex directly.
type callRequest struct {
	fn     func(instance any) (any, error)
	result chan callResult
}

type callResult struct {
	value any
	err   error
}

// ThreadedRunner is the default runner for blocks exposing a typed
// process method.
type ThreadedRunner struct {
	block *block.Block
	mux   bus.SampleMux

	cpuID    int // -1: no pinning requested
	binder   *affinity.Binder
	metrics  *control.MetricsRegistry
	probes   *control.DebugProbes
	config   *control.ConfigStore

	loopMu sync.Mutex // serializes one process iteration against one call

	callMu    sync.Mutex
	callQueue *queue.Queue
	callEvent atomic.Bool
	reqPool   *pool.SyncPool[*callRequest]

	stopCh  chan struct{}
	stopped chan struct{}
	once    sync.Once

	errMu sync.Mutex
	err   error

	iterations atomic.Int64
	consumed   atomic.Int64
	produced   atomic.Int64
}

var _ Runner = (*ThreadedRunner)(nil)

// NewThreadedRunner binds a typed block to its bus. The caller must have
// already run block.SetRate and block.Initialize. metrics/probes may be
// nil; when supplied the runner records per-iteration counters and a
// "runner.<name>.state" probe (spec.md §4.5 "the runner... mediates
// out-of-band call requests", §6 diagnostics are an ambient concern
// carried regardless of the Non-goals around observability layers).
func NewThreadedRunner(b *block.Block, mux bus.SampleMux, metrics *control.MetricsRegistry, probes *control.DebugProbes) *ThreadedRunner {
	validatePorts(mux, b.Signature().NumInputs(), b.Signature().NumOutputs())
	r := &ThreadedRunner{
		block:     b,
		mux:       mux,
		cpuID:     -1,
		metrics:   metrics,
		probes:    probes,
		callQueue: queue.New(),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	r.reqPool = pool.NewSyncPool(func() *callRequest {
		return &callRequest{result: make(chan callResult, 1)}
	})
	if probes != nil {
		probes.RegisterProbe("runner."+b.Name()+".state", func() any {
			return b.State().String()
		})
		control.RegisterPlatformProbes(probes)
	}
	return r
}

// PinTo requests CPU affinity for the worker goroutine's OS thread. Must
// be called before Spawn; has no effect afterward.
func (r *ThreadedRunner) PinTo(cpuID int) {
	r.cpuID = cpuID
	if r.binder == nil {
		r.binder = affinity.NewBinder()
	}
}

// UseConfig wires a shared ConfigStore: the "call_bias_ns" key, if set,
// overrides the default 1µs sleep the worker uses to bias mutex
// acquisition towards a pending Call (spec.md §4.5 Out-of-band calls
// step 2). Must be called before Spawn.
func (r *ThreadedRunner) UseConfig(cs *control.ConfigStore) {
	r.config = cs
}

func (r *ThreadedRunner) callBias() time.Duration {
	if r.config == nil {
		return time.Microsecond
	}
	if v, ok := r.config.GetSnapshot()["call_bias_ns"]; ok {
		if ns, ok := v.(int64); ok && ns > 0 {
			return time.Duration(ns)
		}
	}
	return time.Microsecond
}

// Spawn launches the worker goroutine.
func (r *ThreadedRunner) Spawn() error {
	go r.loop()
	return nil
}

func (r *ThreadedRunner) loop() {
	defer close(r.stopped)
	if r.cpuID >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := r.binder.Pin(r.cpuID, -1); err != nil {
			r.setErr(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-r.stopCh:
			r.finish(nil)
			return
		default:
		}

		if r.callEvent.Load() {
			time.Sleep(r.callBias()) // bias the mutex towards the caller
			r.loopMu.Lock()
			r.drainCalls()
			r.loopMu.Unlock()
		}

		r.loopMu.Lock()
		res, err := r.block.Process(ctx, r.mux)
		r.loopMu.Unlock()

		r.iterations.Add(1)
		for _, c := range res.Consumed {
			r.consumed.Add(int64(c))
		}
		for _, p := range res.Produced {
			r.produced.Add(int64(p))
		}
		r.recordMetrics()

		if err != nil {
			r.mux.SetEOF()
			r.finish(err)
			return
		}
		if res.EOF {
			r.mux.SetEOF()
			r.finish(nil)
			return
		}
	}
}

func (r *ThreadedRunner) finish(err error) {
	if err != nil {
		r.setErr(err)
	}
	r.block.Stop()
}

func (r *ThreadedRunner) recordMetrics() {
	if r.metrics == nil {
		return
	}
	name := r.block.Name()
	r.metrics.Set(name+".iterations", r.iterations.Load())
	r.metrics.Set(name+".consumed", r.consumed.Load())
	r.metrics.Set(name+".produced", r.produced.Load())
}

func (r *ThreadedRunner) setErr(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// drainCalls runs every queued call request against the block's
// instance. Caller must hold loopMu.
func (r *ThreadedRunner) drainCalls() {
	r.callMu.Lock()
	defer r.callMu.Unlock()
	for r.callQueue.Length() > 0 {
		req := r.callQueue.Remove().(*callRequest)
		v, err := req.fn(r.block.Instance())
		req.result <- callResult{value: v, err: err}
	}
	r.callEvent.Store(false)
}

// Stop requests cooperative shutdown, observed between process
// iterations (spec.md §4.5 Cancellation).
func (r *ThreadedRunner) Stop() error {
	r.once.Do(func() { close(r.stopCh) })
	return nil
}

// Join blocks until the worker goroutine has exited.
func (r *ThreadedRunner) Join() {
	<-r.stopped
}

// Call enqueues fn and blocks until the worker drains it between two
// whole process iterations (spec.md §4.5 Out-of-band calls protocol).
// Returns ErrRunnerStopped if the worker exits before reaching fn.
func (r *ThreadedRunner) Call(fn func(instance any) (any, error)) (any, error) {
	req := r.reqPool.Get()
	req.fn = fn
	r.callMu.Lock()
	r.callQueue.Add(req)
	r.callEvent.Store(true)
	r.callMu.Unlock()
	select {
	case res := <-req.result:
		req.fn = nil
		r.reqPool.Put(req)
		return res.value, res.err
	case <-r.stopped:
		return nil, ErrRunnerStopped
	}
}

// GetError returns the terminal error, if any.
func (r *ThreadedRunner) GetError() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}
