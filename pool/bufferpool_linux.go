// +build linux

// Package pool
// Author: momentics <momentics@gmail.com>
//
// Linux-specific NUMA-aware, zero-copy buffer pool implementation. Backing
// storage recycles through a sync.Pool of raw byte slices; api.Buffer
// values are assembled at Get and torn down at Put, with the pool itself
// serving as the Buffer's Releaser (api.Buffer.Release calls back into
// Put through that interface).
package pool

import (
	"sync"

	"github.com/momentics/sigflow/api"
)

type linuxBufferPool struct {
	raw     sync.Pool // of []byte
	numaId  int
	bufSize int

	statsMu sync.Mutex
	stats   api.BufferPoolStats
}

var _ api.Releaser = (*linuxBufferPool)(nil)

func (bp *linuxBufferPool) Get(size int, numaPreferred int) api.Buffer {
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

func (bp *linuxBufferPool) Put(b api.Buffer) {
	bp.raw.Put(b.Data[:cap(b.Data)])

	bp.statsMu.Lock()
	bp.stats.TotalFree++
	bp.stats.InUse--
	bp.statsMu.Unlock()
}

func (bp *linuxBufferPool) Stats() api.BufferPoolStats {
	bp.statsMu.Lock()
	defer bp.statsMu.Unlock()
	return bp.stats
}

// newBufferPool (Linux) creates a buffer pool for the specified NUMA node.
// TODO: Advanced hugepage, mmap, or memfd usage for ultra-low-latency buffer blocks.
func newBufferPool(numaNode int) api.BufferPool {
	return &linuxBufferPool{
		numaId:  numaNode,
		bufSize: 65536, // default buffer size
	}
}
