// internal/core/pool.go
// Reusable raster buffers keyed by size and type
package core

import (
	"sync"

	"gocv.io/x/gocv"
)

type poolKey struct {
	rows, cols int
	typ        gocv.MatType
}

// MatPool keeps a bounded free list of Mats per (rows, cols, type). Working
// buffers for the preview and full capture resolutions are recycled instead of
// reallocated on every frame. Mats are native memory, so anything the pool
// refuses is closed immediately.
type MatPool struct {
	mu     sync.Mutex
	free   map[poolKey][]gocv.Mat
	perKey int
	closed bool
}

// NewMatPool creates a pool holding at most perKey idle buffers per shape.
func NewMatPool(perKey int) *MatPool {
	if perKey < 1 {
		perKey = 1
	}
	return &MatPool{
		free:   make(map[poolKey][]gocv.Mat),
		perKey: perKey,
	}
}

// Get returns a rows×cols Mat of typ. Contents are undefined.
func (p *MatPool) Get(rows, cols int, typ gocv.MatType) gocv.Mat {
	key := poolKey{rows: rows, cols: cols, typ: typ}

	p.mu.Lock()
	list := p.free[key]
	if n := len(list); n > 0 {
		m := list[n-1]
		p.free[key] = list[:n-1]
		p.mu.Unlock()
		return m
	}
	p.mu.Unlock()

	return gocv.NewMatWithSize(rows, cols, typ)
}

// Put hands m back to the pool. The caller must not use m afterwards.
func (p *MatPool) Put(m gocv.Mat) {
	if m.Empty() {
		m.Close()
		return
	}
	key := poolKey{rows: m.Rows(), cols: m.Cols(), typ: m.Type()}

	p.mu.Lock()
	if p.closed || len(p.free[key]) >= p.perKey {
		p.mu.Unlock()
		m.Close()
		return
	}
	p.free[key] = append(p.free[key], m)
	p.mu.Unlock()
}

// Idle returns the number of buffers waiting in the pool.
func (p *MatPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, list := range p.free {
		n += len(list)
	}
	return n
}

// Close releases every idle buffer. Later Puts close their Mat directly.
func (p *MatPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, list := range p.free {
		for i := range list {
			list[i].Close()
		}
		delete(p.free, key)
	}
	p.closed = true
}
