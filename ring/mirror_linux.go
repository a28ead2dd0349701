//go:build linux

// File: ring/mirror_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux "magic ring buffer" allocator: a memfd-backed region mapped twice,
// back to back, so indices beyond capacity alias the start of the buffer.
// Mirrors the double-mmap idiom the teacher uses for io_uring's SQ/CQ
// rings (internal/transport/transport_linux_uring.go), and the raw
// unix.Syscall6 style it uses there for syscalls x/sys/unix has no typed
// wrapper for (MAP_FIXED remapping at a reserved address).
package ring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func allocateMirrored(capacity uint64) ([]byte, func() error, error) {
	fd, err := unix.MemfdCreate("sigflow-ring", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("ring: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		unix.Close(fd)
		return nil, nil, fmt.Errorf("ring: ftruncate: %w", err)
	}

	// Reserve 2*capacity of contiguous address space, then release it
	// immediately so the two fixed mmaps below can claim it. There is a
	// narrow window where another allocation could steal the address; on
	// failure we fall back to an unmirrored buffer rather than erroring.
	reserve, err := unix.Mmap(-1, 0, int(2*capacity), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		unix.Close(fd)
		return fallbackUnmirrored(capacity)
	}
	base := uintptr(unsafe.Pointer(&reserve[0]))
	if err := unix.Munmap(reserve); err != nil {
		unix.Close(fd)
		return fallbackUnmirrored(capacity)
	}

	if _, err := mmapFixed(base, capacity, fd); err != nil {
		unix.Close(fd)
		return fallbackUnmirrored(capacity)
	}
	if _, err := mmapFixed(base+uintptr(capacity), capacity, fd); err != nil {
		unmapAt(base, capacity)
		unix.Close(fd)
		return fallbackUnmirrored(capacity)
	}

	mirrored := unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*capacity)
	closeFn := func() error {
		e1 := unmapAt(base, capacity)
		e2 := unmapAt(base+uintptr(capacity), capacity)
		e3 := unix.Close(fd)
		if e1 != nil {
			return e1
		}
		if e2 != nil {
			return e2
		}
		return e3
	}
	return mirrored, closeFn, nil
}

func fallbackUnmirrored(capacity uint64) ([]byte, func() error, error) {
	return make([]byte, capacity), func() error { return nil }, nil
}

func mmapFixed(addr uintptr, length uint64, fd int) (uintptr, error) {
	ret, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(length),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return 0, errno
	}
	return ret, nil
}

func unmapAt(addr uintptr, length uint64) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(length), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
