package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, "funnel:session:"), mr
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("funnel:session:lock:s1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("funnel:session:lock:s1"))
}

func TestLocker_ContendedLockTimesOut(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)
	defer func() { _ = unlock(ctx) }()

	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(shortCtx, "s1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_StaleHolderCannotRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Minute)
	require.NoError(t, err)

	// Simulate expiry plus re-acquisition by another holder.
	mr.Set("funnel:session:lock:s1", "someone-else")

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("funnel:session:lock:s1"),
		"a stale holder must not delete another holder's lock")
}
