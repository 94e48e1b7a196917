package service

import "sync"

// UserLocker serializes load-mutate-save cycles for one user.
// Different users never block each other.
type UserLocker interface {
	Lock(userID string) func()
}

// PerUserLockManager manages one mutex per user id
type PerUserLockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPerUserLockManager creates a new PerUserLockManager
func NewPerUserLockManager() *PerUserLockManager {
	return &PerUserLockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *PerUserLockManager) getLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[userID] == nil {
		m.locks[userID] = &sync.Mutex{}
	}
	return m.locks[userID]
}

// Lock acquires the user's lock and returns the unlock function
func (m *PerUserLockManager) Lock(userID string) func() {
	lock := m.getLock(userID)
	lock.Lock()
	return lock.Unlock
}
