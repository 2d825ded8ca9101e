package repository

import (
	"context"
	"sync/atomic"
	"time"

	"roomly/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverRoomLocker prefers the primary (Redis) locker and degrades to the
// in-memory one when the primary errors, retrying the primary after a
// cooldown. A missed lock only widens the race window; the store still
// re-validates inside the write transaction.
type FailoverRoomLocker struct {
	primary  domain.RoomLocker
	fallback domain.RoomLocker
	logger   *zerolog.Logger

	isDown    atomic.Bool
	downSince atomic.Int64
}

const primaryRetryCooldown = time.Minute

func NewFailoverRoomLocker(primary, fallback domain.RoomLocker, logger *zerolog.Logger) *FailoverRoomLocker {
	return &FailoverRoomLocker{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverRoomLocker) AcquireRoomLock(ctx context.Context, roomID int64, ttl time.Duration) (bool, error) {
	if f.usePrimary() {
		ok, err := f.primary.AcquireRoomLock(ctx, roomID, ttl)
		if err == nil {
			return ok, nil
		}
		f.markDown(err)
	}
	return f.fallback.AcquireRoomLock(ctx, roomID, ttl)
}

func (f *FailoverRoomLocker) ReleaseRoomLock(ctx context.Context, roomID int64) error {
	if f.usePrimary() {
		err := f.primary.ReleaseRoomLock(ctx, roomID)
		if err == nil {
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.ReleaseRoomLock(ctx, roomID)
}

func (f *FailoverRoomLocker) usePrimary() bool {
	if f.primary == nil {
		return false
	}
	if !f.isDown.Load() {
		return true
	}
	if time.Since(time.Unix(0, f.downSince.Load())) > primaryRetryCooldown {
		f.isDown.Store(false)
		return true
	}
	return false
}

func (f *FailoverRoomLocker) markDown(err error) {
	f.logger.Error().Err(err).Msg("primary room locker failed, falling back to memory")
	f.isDown.Store(true)
	f.downSince.Store(time.Now().UnixNano())
}
