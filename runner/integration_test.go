package runner

import (
	"errors"
	"os"
	"testing"

	"github.com/momentics/sigflow/block"
	"github.com/momentics/sigflow/bus"
	"github.com/momentics/sigflow/ring"
)

// TestThreadedRunnerPropagatesBrokenStreamToSource wires a real source and
// sink ThreadedRunner over one shared ring.Ring (not the in-memory Test
// bus), fails the sink on its 25th call, and checks that the upstream
// source runner observes BrokenStream once the ring fills (spec.md §8
// scenario 5, §7 "fail downstream producers with BrokenStream on their
// next write attempt").
func TestThreadedRunnerPropagatesBrokenStreamToSource(t *testing.T) {
	r, err := ring.New(uint64(os.Getpagesize()))
	if err != nil {
		t.Fatalf("ring.New: %v", err)
	}
	defer r.Close()

	srcMux := bus.NewRingMux(nil, []*ring.Ring{r})
	sinkMux := bus.NewRingMux([]*ring.Ring{r}, nil)

	src := &infiniteSource{}
	srcBlk := block.NewSource[*infiniteSource, uint32](src)
	srcBlk.SetRate(1.0)
	if err := srcBlk.Initialize(nil); err != nil {
		t.Fatalf("source Initialize: %v", err)
	}

	sink := &failingSink{}
	sinkBlk := block.NewSink[*failingSink, uint32](sink)
	sinkBlk.SetRate(1.0)
	if err := sinkBlk.Initialize(nil); err != nil {
		t.Fatalf("sink Initialize: %v", err)
	}

	srcRunner := NewThreadedRunner(srcBlk, srcMux, nil, nil)
	sinkRunner := NewThreadedRunner(sinkBlk, sinkMux, nil, nil)

	if err := sinkRunner.Spawn(); err != nil {
		t.Fatalf("sink Spawn: %v", err)
	}
	if err := srcRunner.Spawn(); err != nil {
		t.Fatalf("source Spawn: %v", err)
	}

	sinkRunner.Join()
	if err := sinkRunner.GetError(); !errors.Is(err, errSinkBoom) {
		t.Fatalf("sink GetError() = %v, want wrapping %v", err, errSinkBoom)
	}
	if sink.calls != 25 {
		t.Fatalf("sink.calls = %d, want exactly 25", sink.calls)
	}

	srcRunner.Join()
	srcErr := srcRunner.GetError()
	if srcErr == nil {
		t.Fatal("expected the source runner to report an error once its sink broke")
	}
	if !errors.Is(srcErr, block.ErrBrokenStream) {
		t.Fatalf("source GetError() = %v, want wrapping %v", srcErr, block.ErrBrokenStream)
	}
}
