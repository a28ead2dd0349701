// ring_test.go — correctness and blocking-contract tests for the SPSC ring.
package ring

import (
	"context"
	"os"
	"sync"
	"testing"
)

func pow2PageCapacity(multiple uint64) uint64 {
	return uint64(os.Getpagesize()) * multiple
}

func TestRing_RejectsBadCapacity(t *testing.T) {
	if _, err := New(3); err == nil {
		t.Fatal("expected error for non-power-of-two capacity")
	}
	if _, err := New(1); err == nil {
		t.Fatal("expected error for capacity below minimum")
	}
}

func TestRing_WriteReadRoundTrip(t *testing.T) {
	cap := pow2PageCapacity(1)
	r, err := New(cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	w := r.GetWriteSlice()
	if uint64(len(w)) != cap {
		t.Fatalf("expected full capacity writable, got %d", len(w))
	}
	for i := range w[:16] {
		w[i] = byte(i)
	}
	r.UpdateWrite(16)

	read := r.GetReadSlice()
	if len(read) != 16 {
		t.Fatalf("expected 16 readable bytes, got %d", len(read))
	}
	for i := 0; i < 16; i++ {
		if read[i] != byte(i) {
			t.Fatalf("byte %d: expected %d got %d", i, i, read[i])
		}
	}
	r.UpdateRead(16)
	if r.used() != 0 {
		t.Fatalf("expected ring empty after full drain, used=%d", r.used())
	}
}

func TestRing_WritableAfterHeadWraps(t *testing.T) {
	cap := pow2PageCapacity(1)
	r, err := New(cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	// Fill, drain most of it, then write again so head wraps past the end.
	r.UpdateWrite(int(cap))
	r.UpdateRead(int(cap) - 8)
	r.UpdateWrite(8) // not actually produced bytes, just advancing for the test

	w := r.GetWriteSlice()
	if len(w) == 0 {
		t.Fatal("expected writable bytes after wraparound")
	}
}

func TestRing_PartialConsumeLeavesExactRemainder(t *testing.T) {
	cap := pow2PageCapacity(1)
	r, err := New(cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	r.UpdateWrite(100)
	r.UpdateRead(37)
	if r.used() != 63 {
		t.Fatalf("expected 63 bytes remaining, got %d", r.used())
	}
}

func TestRing_EOFBeforeAnyWriteReturnsEndOfStream(t *testing.T) {
	cap := pow2PageCapacity(1)
	r, err := New(cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	r.SetEOF()
	if err := r.WaitReadable(context.Background()); err != ErrEndOfStream {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestRing_FullThenEOFReturnsBrokenStreamToProducer(t *testing.T) {
	cap := pow2PageCapacity(1)
	r, err := New(cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	r.UpdateWrite(int(cap)) // fill completely

	var wg sync.WaitGroup
	wg.Add(1)
	var gotErr error
	go func() {
		defer wg.Done()
		gotErr = r.WaitWritable(context.Background())
	}()
	r.SetEOF()
	wg.Wait()
	if gotErr != ErrBrokenStream {
		t.Fatalf("expected ErrBrokenStream, got %v", gotErr)
	}
}

func TestRing_ConcurrentProducerConsumer(t *testing.T) {
	cap := pow2PageCapacity(1)
	r, err := New(cap)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	const total = 1 << 20
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		written := 0
		for written < total {
			if err := r.WaitWritable(context.Background()); err != nil {
				t.Errorf("producer wait: %v", err)
				return
			}
			w := r.GetWriteSlice()
			n := len(w)
			if written+n > total {
				n = total - written
			}
			for i := 0; i < n; i++ {
				w[i] = byte(written + i)
			}
			r.UpdateWrite(n)
			written += n
		}
		r.SetEOF()
	}()

	go func() {
		defer wg.Done()
		read := 0
		for read < total {
			if err := r.WaitReadable(context.Background()); err != nil {
				t.Errorf("consumer wait: %v", err)
				return
			}
			data := r.GetReadSlice()
			n := len(data)
			if read+n > total {
				n = total - read
			}
			for i := 0; i < n; i++ {
				if data[i] != byte(read+i) {
					t.Errorf("mismatch at %d: got %d want %d", read+i, data[i], byte(read+i))
					r.UpdateRead(n)
					read += n
					continue
				}
			}
			r.UpdateRead(n)
			read += n
		}
	}()

	wg.Wait()
}
