package block

import (
	"context"
	"math"
	"testing"

	"github.com/momentics/sigflow/api"
	"github.com/momentics/sigflow/bus"
	"github.com/momentics/sigflow/dtype"
	"github.com/momentics/sigflow/pool"
)

func u32Bytes(vals ...uint32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return out
}

func readU32(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}

// adder adds two uint32 streams sample-by-sample (spec.md §8 scenario 1).
type adder struct{}

func (adder) Process(a, b []uint32, out []uint32) (Result, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = a[i] + b[i]
	}
	return Result{Consumed: []int{n, n}, Produced: []int{n}}, nil
}

func TestCombiner2x1Adder(t *testing.T) {
	a := u32Bytes(1, 2, 3, 4)
	bIn := u32Bytes(10, 20, 30, 40)
	tb := bus.NewTest([][]byte{a, bIn}, []int{4, 4}, 1, []int{4})

	blk := NewCombiner2x1[*adder, uint32, uint32, uint32](&adder{})
	wantSig := dtype.Signature{
		Inputs:  []dtype.Tag{dtype.Unsigned32, dtype.Unsigned32},
		Outputs: []dtype.Tag{dtype.Unsigned32},
	}
	if !blk.Signature().Equal(wantSig) {
		t.Fatalf("Signature() = %+v, want %+v", blk.Signature(), wantSig)
	}

	blk.SetRate(1.0)
	if err := blk.Initialize(nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res, err := blk.Process(context.Background(), tb)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Consumed[0] != 4 || res.Consumed[1] != 4 || res.Produced[0] != 4 {
		t.Fatalf("unexpected Result: %+v", res)
	}
	got := readU32(tb.Output(0))
	want := []uint32{11, 22, 33, 44}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// subtractor subtracts two complex64 streams sample-by-sample (spec.md §8
// scenario 2).
type subtractor struct{}

func (subtractor) Process(a, b []complex64, out []complex64) (Result, error) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = a[i] - b[i]
	}
	return Result{Consumed: []int{n, n}, Produced: []int{n}}, nil
}

func c64Bytes(vals ...complex64) []byte {
	out := make([]byte, 0, len(vals)*8)
	put := func(f float32) {
		bits := math.Float32bits(f)
		out = append(out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	for _, v := range vals {
		put(real(v))
		put(imag(v))
	}
	return out
}

func readC64(b []byte) []complex64 {
	get := func(off int) float32 {
		bits := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
		return math.Float32frombits(bits)
	}
	out := make([]complex64, len(b)/8)
	for i := range out {
		out[i] = complex(get(i*8), get(i*8+4))
	}
	return out
}

func TestCombiner2x1ComplexSubtractor(t *testing.T) {
	a := c64Bytes(complex(1, 2), complex(3, 4), complex(5, 6))
	bIn := c64Bytes(complex(0.5, 0.5), complex(0.25, 0.25), complex(0.75, 0.75))
	tb := bus.NewTest([][]byte{a, bIn}, []int{8, 8}, 1, []int{8})

	blk := NewCombiner2x1[*subtractor, complex64, complex64, complex64](&subtractor{})
	wantSig := dtype.Signature{
		Inputs:  []dtype.Tag{dtype.ComplexFloat32, dtype.ComplexFloat32},
		Outputs: []dtype.Tag{dtype.ComplexFloat32},
	}
	if !blk.Signature().Equal(wantSig) {
		t.Fatalf("Signature() = %+v, want %+v", blk.Signature(), wantSig)
	}

	blk.SetRate(1.0)
	if err := blk.Initialize(nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res, err := blk.Process(context.Background(), tb)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Consumed[0] != 3 || res.Consumed[1] != 3 || res.Produced[0] != 3 {
		t.Fatalf("unexpected Result: %+v", res)
	}

	got := readC64(tb.Output(0))
	want := []complex64{complex(0.5, 1.5), complex(2.75, 3.75), complex(4.25, 5.25)}
	const eps = 0.1
	for i := range want {
		if realDiff(real(got[i]), real(want[i])) > eps || realDiff(imag(got[i]), imag(want[i])) > eps {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func realDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}

// doubler doubles each sample (spec.md §8 scenario 3's middle stage).
type doubler struct{}

func (doubler) Process(in []uint32, out []uint32) (Result, error) {
	n := len(in)
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = in[i] * 2
	}
	return Result{Consumed: []int{n}, Produced: []int{n}}, nil
}

func TestTransform1x1Doubler(t *testing.T) {
	in := u32Bytes(1, 2, 3)
	tb := bus.NewTest([][]byte{in}, []int{4}, 1, []int{4})

	blk := NewTransform[*doubler, uint32, uint32](&doubler{})
	blk.SetRate(1.0)
	if err := blk.Initialize(nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := blk.Process(context.Background(), tb); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := readU32(tb.Output(0))
	want := []uint32{2, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// countingSource emits 0..n-1 then reports EOF (spec.md §8 scenario 3).
type countingSource struct {
	next, limit uint32
}

func (s *countingSource) Process(out []uint32) (Result, error) {
	n := len(out)
	remaining := int(s.limit - s.next)
	if n > remaining {
		n = remaining
	}
	for i := 0; i < n; i++ {
		out[i] = s.next
		s.next++
	}
	return Result{Produced: []int{n}, EOF: s.next >= s.limit}, nil
}

// collectingSink appends every consumed sample (spec.md §8 scenario 3).
type collectingSink struct {
	got []uint32
}

func (s *collectingSink) Process(in []uint32) (Result, error) {
	s.got = append(s.got, in...)
	return Result{Consumed: []int{len(in)}}, nil
}

func TestSourceTransformSinkPipeline(t *testing.T) {
	src := &countingSource{limit: 100}
	srcBlk := NewSource[*countingSource, uint32](src)
	srcBus := bus.NewTest(nil, nil, 1, []int{4})

	dbl := &doubler{}
	dblBlk := NewTransform[*doubler, uint32, uint32](dbl)

	sink := &collectingSink{}
	sinkBlk := NewSink[*collectingSink, uint32](sink)

	srcBlk.SetRate(1.0)
	dblBlk.SetRate(srcBlk.Rate())
	sinkBlk.SetRate(dblBlk.Rate())
	for _, b := range []*Block{srcBlk, dblBlk, sinkBlk} {
		if err := b.Initialize(nil); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}

	ctx := context.Background()
	for {
		res, err := srcBlk.Process(ctx, srcBus)
		if err != nil {
			t.Fatalf("source Process: %v", err)
		}
		if res.EOF {
			break
		}
	}
	produced := srcBus.Output(0)

	midBus := bus.NewTest([][]byte{produced}, []int{4}, 1, []int{4})
	for {
		res, err := dblBlk.Process(ctx, midBus)
		if err != nil {
			t.Fatalf("doubler Process: %v", err)
		}
		if res.EOF {
			break
		}
	}

	sinkBus := bus.NewTest([][]byte{midBus.Output(0)}, []int{4}, 0, nil)
	for {
		res, err := sinkBlk.Process(ctx, sinkBus)
		if err != nil {
			t.Fatalf("sink Process: %v", err)
		}
		if res.EOF {
			break
		}
	}

	if len(sink.got) != 100 {
		t.Fatalf("len(sink.got) = %d, want 100", len(sink.got))
	}
	for i, v := range sink.got {
		if v != uint32(i)*2 {
			t.Fatalf("sink.got[%d] = %d, want %d", i, v, uint32(i)*2)
		}
	}
}

func TestSinkAutoEOFOnDrainedInput(t *testing.T) {
	in := u32Bytes(5)
	tb := bus.NewTest([][]byte{in}, []int{4}, 0, nil)
	sink := &collectingSink{}
	blk := NewSink[*collectingSink, uint32](sink)
	blk.SetRate(1.0)
	if err := blk.Initialize(nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	ctx := context.Background()

	res, err := blk.Process(ctx, tb) // consumes the only sample
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.EOF {
		t.Fatal("must not report EOF while input was still available")
	}

	res, err = blk.Process(ctx, tb) // nothing left, port exhausted
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.EOF {
		t.Fatal("expected auto-EOF once the drained input reports IsEOF")
	}
}

func TestBlockStateMachineOrder(t *testing.T) {
	blk := NewTransform[*doubler, uint32, uint32](&doubler{})
	if blk.State() != Constructed {
		t.Fatalf("State() = %s, want Constructed", blk.State())
	}
	blk.SetRate(2.0)
	if blk.State() != RateSet {
		t.Fatalf("State() = %s, want RateSet", blk.State())
	}
	if err := blk.Initialize(nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if blk.State() != Initialized {
		t.Fatalf("State() = %s, want Initialized", blk.State())
	}
}

// scratchDoubler exercises the Allocator lifecycle hook: it acquires a
// NUMA-local scratch buffer at Initialize and releases it at
// Deinitialize, the way a block doing out-of-place work beyond its own
// in/out ports would.
type scratchDoubler struct {
	scratch api.Buffer
}

func (d *scratchDoubler) Initialize(alloc *Allocator) error {
	d.scratch = alloc.GetPool(-1).Get(64, -1)
	return nil
}

func (d *scratchDoubler) Deinitialize(alloc *Allocator) {
	d.scratch.Release()
}

func (d *scratchDoubler) Process(in []uint32, out []uint32) (Result, error) {
	n := len(in)
	if len(out) < n {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = in[i] * 2
	}
	return Result{Consumed: []int{n}, Produced: []int{n}}, nil
}

func TestTransformWithRealBufferPoolManager(t *testing.T) {
	alloc := pool.NewBufferPoolManager()
	d := &scratchDoubler{}
	blk := NewTransform[*scratchDoubler, uint32, uint32](d)
	blk.SetRate(1.0)
	if err := blk.Initialize(alloc); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if d.scratch.Capacity() < 64 {
		t.Fatalf("scratch buffer too small: cap=%d", d.scratch.Capacity())
	}

	in := u32Bytes(1, 2, 3)
	tb := bus.NewTest([][]byte{in}, []int{4}, 1, []int{4})
	if _, err := blk.Process(context.Background(), tb); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := readU32(tb.Output(0))
	want := []uint32{2, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	blk.Deinitialize(alloc)
	stats := alloc.GetPool(-1).Stats()
	if stats.TotalFree == 0 {
		t.Fatal("expected Deinitialize to release the scratch buffer back to the pool")
	}
}

func TestBlockSetRateOutOfOrderPanics(t *testing.T) {
	blk := NewTransform[*doubler, uint32, uint32](&doubler{})
	blk.SetRate(1.0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected a second SetRate call to panic")
		}
	}()
	blk.SetRate(1.0)
}
