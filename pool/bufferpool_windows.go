// +build windows

// Package pool
// Author: momentics <momentics@gmail.com>
//
// Windows-specific NUMA-aware, zero-copy buffer pool implementation. Mirrors
// bufferpool_linux.go's sync.Pool-of-byte-slices approach; Windows NUMA node
// affinity for the backing allocation is left to the OS's default placement.
package pool

import (
	"sync"

	"github.com/momentics/sigflow/api"
)

type windowsBufferPool struct {
	raw     sync.Pool // of []byte
	numaId  int
	bufSize int

	statsMu sync.Mutex
	stats   api.BufferPoolStats
}

var _ api.Releaser = (*windowsBufferPool)(nil)

func (bp *windowsBufferPool) Get(size int, numaPreferred int) api.Buffer {
	var data []byte
	if v := bp.raw.Get(); v != nil {
		data = v.([]byte)
		if cap(data) < size {
			data = make([]byte, size)
		} else {
			data = data[:size]
		}
	} else {
		data = make([]byte, size)
	}

	bp.statsMu.Lock()
	bp.stats.TotalAlloc++
	bp.stats.InUse++
	bp.statsMu.Unlock()

	return api.Buffer{Data: data, NUMA: bp.numaId, Pool: bp}
}

func (bp *windowsBufferPool) Put(b api.Buffer) {
	bp.raw.Put(b.Data[:cap(b.Data)])

	bp.statsMu.Lock()
	bp.stats.TotalFree++
	bp.stats.InUse--
	bp.statsMu.Unlock()
}

func (bp *windowsBufferPool) Stats() api.BufferPoolStats {
	bp.statsMu.Lock()
	defer bp.statsMu.Unlock()
	return bp.stats
}

// newBufferPool (Windows) creates buffer pool with potential NUMA affinity.
func newBufferPool(numaNode int) api.BufferPool {
	return &windowsBufferPool{
		numaId:  numaNode,
		bufSize: 65536,
	}
}
