package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/domain"
)

func TestAccountLocker_ExclusiveUntilRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	locker := NewAccountLocker(client)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "addr", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "addr", time.Minute)
	assert.ErrorIs(t, err, domain.ErrAccountBusy)

	_, err = locker.Acquire(ctx, "other", time.Minute)
	assert.NoError(t, err, "other address should be free")

	require.NoError(t, release(ctx))

	_, err = locker.Acquire(ctx, "addr", time.Minute)
	assert.NoError(t, err, "expected lock to be free after release")
}

func TestAccountLocker_StaleReleaseKeepsNewHolder(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	locker := NewAccountLocker(client)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "addr", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = locker.Acquire(ctx, "addr", time.Minute)
	require.NoError(t, err, "expected expired lock to be reacquired")

	require.NoError(t, stale(ctx))

	assert.True(t, mr.Exists(locker.prefix+"addr"), "stale release must not drop the new holder's lock")
}
