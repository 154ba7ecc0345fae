package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDayLocker(client, 5*time.Second), mr
}

func TestWithDayLockRunsAndReleases(t *testing.T) {
	locker, mr := newTestLocker(t)
	clinicID := uuid.New()
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	ran := false
	err := locker.WithDayLock(context.Background(), clinicID, day, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:day:"+clinicID.String()+":2026-06-01"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// Released on return, so a second acquisition succeeds.
	assert.False(t, mr.Exists("lock:day:"+clinicID.String()+":2026-06-01"))
	err = locker.WithDayLock(context.Background(), clinicID, day, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithDayLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)
	clinicID := uuid.New()
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	err := locker.WithDayLock(context.Background(), clinicID, day, func(ctx context.Context) error {
		// A second caller inside the critical section must be bounced.
		inner := locker.WithDayLock(ctx, clinicID, day, func(context.Context) error {
			t.Fatal("contended caller must not run")
			return nil
		})
		return inner
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestWithDayLockScopesByClinicAndDay(t *testing.T) {
	locker, _ := newTestLocker(t)
	clinicID := uuid.New()
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	err := locker.WithDayLock(context.Background(), clinicID, day, func(ctx context.Context) error {
		// A different clinic and a different day are independent locks.
		if err := locker.WithDayLock(ctx, uuid.New(), day, func(context.Context) error { return nil }); err != nil {
			return err
		}
		return locker.WithDayLock(ctx, clinicID, day.AddDate(0, 0, 1), func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
}

func TestWithDayLockPropagatesCallbackError(t *testing.T) {
	locker, mr := newTestLocker(t)
	clinicID := uuid.New()
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	sentinel := assert.AnError
	err := locker.WithDayLock(context.Background(), clinicID, day, func(context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// Errors still release the lock.
	assert.False(t, mr.Exists("lock:day:" + clinicID.String() + ":2026-06-01"))
}
