//go:build !linux

// File: ring/mirror_portable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-Linux fallback: no mirrored mapping, so on wraparound Ring returns
// only the run from the cursor to the end of the buffer (see
// GetWriteSlice/GetReadSlice in ring.go).
package ring

func allocateMirrored(capacity uint64) ([]byte, func() error, error) {
	return make([]byte, capacity), func() error { return nil }, nil
}
