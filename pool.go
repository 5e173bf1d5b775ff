package htmlprint

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one surface is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// DefaultPoolSize returns half the usable procs, clamped to the pool bounds.
// GOMAXPROCS rather than NumCPU, so container CPU quota adjustments (e.g.
// automaxprocs in the CLI) carry through to pool sizing.
func DefaultPoolSize() int {
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

// SurfacePool manages a pool of Surface instances for parallel exports.
// Each surface owns its own browser, enabling true parallelism. Surfaces
// are created lazily on first acquire to avoid startup delay.
type SurfacePool struct {
	size     int
	surfaces []*Surface
	sem      chan *Surface
	mu       sync.Mutex
	created  int
	closed   bool
}

// NewSurfacePool creates a pool with capacity for n Surface instances.
func NewSurfacePool(n int) *SurfacePool {
	if n < 1 {
		n = 1
	}
	return &SurfacePool{
		size:     n,
		surfaces: make([]*Surface, 0, n),
		sem:      make(chan *Surface, n),
	}
}

// Acquire gets a surface from the pool, creating one if needed.
// Blocks if all surfaces are in use.
func (p *SurfacePool) Acquire() *Surface {
	// Try to get an existing surface (non-blocking)
	select {
	case s := <-p.sem:
		return s
	default:
	}

	// Check if we can create a new surface
	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		s := NewSurface()

		p.mu.Lock()
		p.surfaces = append(p.surfaces, s)
		p.mu.Unlock()

		return s
	}
	p.mu.Unlock()

	// All surfaces created, wait for one to be released
	return <-p.sem
}

// Release returns a surface to the pool. Releasing into a closed pool is a
// no-op; the surface was already closed by Close.
func (p *SurfacePool) Release(s *Surface) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	select {
	case p.sem <- s:
	default:
		// Pool channel full; drop on the floor. Close still reaches the
		// surface through p.surfaces.
	}
}

// Close shuts down every surface created by the pool. The first error is
// returned; later surfaces are still closed.
func (p *SurfacePool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("htmlprint: pool already closed")
	}
	p.closed = true
	surfaces := p.surfaces
	p.surfaces = nil
	p.mu.Unlock()

	var firstErr error
	for _, s := range surfaces {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
