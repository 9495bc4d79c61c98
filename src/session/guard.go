package session

import "sync/atomic"

// -----------------------------------------------------------------------------

// Guard allows at most one outstanding Permit. Acquire never blocks.
type Guard struct {
	active atomic.Bool
}

// NewGuard returns an unset guard
func NewGuard() *Guard {
	return &Guard{}
}

// -----------------------------------------------------------------------------

// Acquire sets the guard and returns the only valid Permit, or ErrAlreadyActive
func (g *Guard) Acquire() (*Permit, error) {
	if !g.active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyActive
	}
	return &Permit{guard: g}, nil
}

// IsActive reports whether a permit is outstanding
func (g *Guard) IsActive() bool {
	return g.active.Load()
}

func (g *Guard) release() {
	g.active.Store(false)
}

// -----------------------------------------------------------------------------

// Permit is proof of holding the guard. Only its Release clears the guard.
type Permit struct {
	guard    *Guard
	released atomic.Bool
}

// Release clears the guard. Later calls do nothing.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	if p.released.CompareAndSwap(false, true) {
		p.guard.release()
	}
}

// isReleased reports whether Release already ran
func (p *Permit) isReleased() bool {
	return p.released.Load()
}
