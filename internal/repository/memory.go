package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRoomLocker is the in-process fallback when Redis is not configured or
// unavailable. Sufficient for a single-instance deployment.
type MemoryRoomLocker struct {
	mu    sync.Mutex
	locks map[int64]time.Time
}

func NewMemoryRoomLocker() *MemoryRoomLocker {
	return &MemoryRoomLocker{locks: make(map[int64]time.Time)}
}

func (m *MemoryRoomLocker) AcquireRoomLock(ctx context.Context, roomID int64, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if expiresAt, held := m.locks[roomID]; held && now.Before(expiresAt) {
		return false, nil
	}
	m.locks[roomID] = now.Add(ttl)
	return true, nil
}

func (m *MemoryRoomLocker) ReleaseRoomLock(ctx context.Context, roomID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, roomID)
	return nil
}
