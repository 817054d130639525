package device

import (
	"os"
	"strconv"
)

const (
	envRingSize  = "HARMONICS_DEVICE_RING_SIZE"
	envPoolLimit = "HARMONICS_DEVICE_POOL_LIMIT"

	defaultRingSize = 3
)

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// RingSize returns the configured device ring-buffer depth.
func RingSize() int { return envInt(envRingSize, defaultRingSize) }

// PoolLimit returns the configured device pool capacity.
func PoolLimit() int { return envInt(envPoolLimit, 2*RingSize()) }

// Ring is a fixed-depth rotation of device buffers used as scratch space for
// host<->device copies. Acquiring a buffer too small for the request evicts
// it to the Pool and allocates a larger one in its place.
type Ring struct {
	dev     Device
	size    int
	buffers []*Buffer
	next    int
	pool    *Pool
}

// NewRing creates a ring of the configured depth backed by dev, with
// overflow buffers routed to a Pool of the configured limit.
func NewRing(dev Device) *Ring {
	size := RingSize()
	return &Ring{
		dev:     dev,
		size:    size,
		buffers: make([]*Buffer, size),
		pool:    NewPool(dev, PoolLimit()),
	}
}

// Acquire returns a buffer with at least the requested capacity from the
// current ring slot, growing it (and returning the displaced buffer to the
// pool) if the current slot is too small.
func (r *Ring) Acquire(bytes int) (*Buffer, error) {
	slot := r.next
	r.next = (r.next + 1) % r.size

	cur := r.buffers[slot]
	if cur != nil && cur.Capacity() >= bytes {
		return cur, nil
	}

	fresh, err := r.dev.Alloc(bytes)
	if err != nil {
		return nil, err
	}

	if cur != nil {
		r.pool.Return(cur)
	}

	r.buffers[slot] = fresh

	return fresh, nil
}

// Clear frees every buffer currently held by the ring and clears the pool.
func (r *Ring) Clear() {
	for i, b := range r.buffers {
		if b != nil {
			r.dev.Free(b)
			r.buffers[i] = nil
		}
	}
	r.next = 0
	r.pool.Clear()
}

// Pool holds buffers displaced from the ring, bounded by limit. Inserting
// into a full pool frees the oldest buffer and retains the new one.
type Pool struct {
	dev     Device
	limit   int
	buffers []*Buffer
}

// NewPool creates a pool bounded by limit, backed by dev for frees.
func NewPool(dev Device, limit int) *Pool {
	return &Pool{dev: dev, limit: limit}
}

// Return adds buf to the pool, freeing the oldest entry first if doing so
// would exceed the pool's limit.
func (p *Pool) Return(buf *Buffer) {
	if len(p.buffers) >= p.limit {
		oldest := p.buffers[0]
		p.buffers = p.buffers[1:]
		p.dev.Free(oldest)
	}
	p.buffers = append(p.buffers, buf)
}

// Take removes and returns the first buffer in the pool with capacity >=
// bytes, or nil if none qualifies.
func (p *Pool) Take(bytes int) *Buffer {
	for i, b := range p.buffers {
		if b.Capacity() >= bytes {
			p.buffers = append(p.buffers[:i], p.buffers[i+1:]...)
			return b
		}
	}
	return nil
}

// Clear frees every buffer held by the pool.
func (p *Pool) Clear() {
	for _, b := range p.buffers {
		p.dev.Free(b)
	}
	p.buffers = nil
}
