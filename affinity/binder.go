// File: affinity/binder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Binder adapts the package-level SetAffinity function into the
// api.Affinity contract so runner.ThreadedRunner can track and query the
// CPU its worker goroutine's OS thread was pinned to (spec.md §5 "one OS
// thread per Threaded runner").
package affinity

import (
	"github.com/momentics/sigflow/api"
)

// Binder tracks the pin state of a single OS thread.
type Binder struct {
	desc api.AffinityDescriptor
}

var _ api.Affinity = (*Binder)(nil)

// NewBinder returns an unpinned Binder scoped to the calling goroutine's
// underlying OS thread.
func NewBinder() *Binder {
	return &Binder{desc: api.AffinityDescriptor{CPUID: -1, NUMAID: -1, Scope: api.ScopeThread}}
}

// Pin binds the current OS thread to cpuID via SetAffinity. Callers must
// have already called runtime.LockOSThread.
func (b *Binder) Pin(cpuID, numaID int) error {
	if err := SetAffinity(cpuID); err != nil {
		return err
	}
	b.desc.CPUID = cpuID
	b.desc.NUMAID = numaID
	b.desc.Pinned = true
	return nil
}

// Unpin clears the tracked binding. The OS thread itself stays pinned —
// there is no portable "unset affinity" primitive — but the descriptor
// once again reports Pinned==false so callers stop relying on it.
func (b *Binder) Unpin() error {
	b.desc.Pinned = false
	b.desc.CPUID = -1
	return nil
}

// Get reports the effective CPU/NUMA IDs last set via Pin.
func (b *Binder) Get() (cpuID, numaID int, err error) {
	return b.desc.CPUID, b.desc.NUMAID, nil
}

// Scope reports this binder's scope (always thread-scoped).
func (b *Binder) Scope() api.AffinityScope { return b.desc.Scope }

// ImmutableDescriptor returns a snapshot of the current binding state.
func (b *Binder) ImmutableDescriptor() api.AffinityDescriptor { return b.desc }
