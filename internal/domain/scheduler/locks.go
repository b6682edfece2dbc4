package scheduler

import (
	"sync"

	"github.com/google/uuid"
)

// hospitalLocks serializes scheduling operations per hospital. Writes take
// the hospital's lock with TryLock so a concurrent run is rejected with a
// retry-later signal instead of queueing; reads never touch the locks.
type hospitalLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newHospitalLocks() *hospitalLocks {
	return &hospitalLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (h *hospitalLocks) get(hospitalID uuid.UUID) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[hospitalID]
	if !ok {
		l = &sync.Mutex{}
		h.locks[hospitalID] = l
	}
	return l
}

// TryLock attempts to take the hospital's lock without blocking.
func (h *hospitalLocks) TryLock(hospitalID uuid.UUID) bool {
	return h.get(hospitalID).TryLock()
}

func (h *hospitalLocks) Unlock(hospitalID uuid.UUID) {
	h.get(hospitalID).Unlock()
}
