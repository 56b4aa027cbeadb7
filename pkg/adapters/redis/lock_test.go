package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/crabritto/arbor/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:session-1"), "Lock key should be set in Redis")

	assert.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:session-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	holder := redis.NewLocker(client, "test:")
	waiter := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := holder.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	_, err = waiter.Lock(ctxTimeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := waiter.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("test:lock:shared"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "s", time.Second)
	require.NoError(t, err)

	// First holder's lease runs out and a second holder takes over.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "s", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("test:lock:s"), "stale unlock must not release the new owner's lock")

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("test:lock:s"))
}
