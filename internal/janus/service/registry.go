package service

import "sync"

// LockRegistry holds the monitors for every discovered smartlock. Locks
// are registered at startup and when discovery finds new devices; lookup
// happens on every HTTP request and poll tick.
type LockRegistry struct {
	mu       sync.RWMutex
	monitors map[int64]*LockMonitor
	order    []int64
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{monitors: make(map[int64]*LockMonitor)}
}

// Add registers a monitor. Re-adding the same lock id replaces the
// existing monitor but keeps its registration order.
func (r *LockRegistry) Add(m *LockMonitor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := m.cfg.LockID
	if _, ok := r.monitors[id]; !ok {
		r.order = append(r.order, id)
	}
	r.monitors[id] = m
}

// Monitor returns the monitor for a lock id, or nil when unknown.
func (r *LockRegistry) Monitor(lockID int64) *LockMonitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.monitors[lockID]
}

// Monitors returns all monitors in registration order.
func (r *LockRegistry) Monitors() []*LockMonitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*LockMonitor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.monitors[id])
	}
	return out
}
