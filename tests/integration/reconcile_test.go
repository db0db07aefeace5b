package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/adapter/repository/postgres"
	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/tests/testutil"
)

func TestReconcileAccountEndToEnd(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	db.CreateWallet(ctx, testutil.WatchedAddress, 7)

	c := newChain()
	for i, sig := range []string{"s1", "s2", "s3", "s4", "s5"} {
		c.deposit(sig, uint64(10+i), 1_000_000_000)
	}
	pub := &publisher{}
	s := newStack(db, c, pub, 2)

	result, err := s.reconciler.ReconcileAccount(ctx, testutil.WatchedAddress)
	require.NoError(t, err)
	assert.Equal(t, 5, result.NewDeposits)
	require.NotNil(t, result.Checkpoint)
	assert.Equal(t, uint64(14), result.Checkpoint.Slot)
	assert.Equal(t, "s5", result.Checkpoint.Signature)
	assert.Len(t, pub.txs, 5)

	// nothing new on the second pass
	again, err := s.reconciler.ReconcileAccount(ctx, testutil.WatchedAddress)
	require.NoError(t, err)
	assert.Zero(t, again.NewDeposits)
	assert.Zero(t, again.Scanned)

	cp, err := postgres.NewCheckpointRepository(db.Pool).Get(ctx, testutil.WatchedAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(14), cp.Slot)

	entry, err := s.deposits.GetBalance(ctx, 7, domain.AssetIDSOL)
	require.NoError(t, err)
	assert.True(t, entry.Balance.Equal(decimal.NewFromInt(5)), entry.Balance.String())

	unpublished, err := s.outbox.GetUnpublished(ctx, 10, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, unpublished, "inline publish marks outbox rows")
}

func TestCheckpointNeverRewinds(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	db.CreateWallet(ctx, testutil.WatchedAddress, 7)
	repo := postgres.NewCheckpointRepository(db.Pool)

	advanced, err := repo.Advance(ctx, &domain.Checkpoint{Address: testutil.WatchedAddress, Slot: 50, Signature: "b", UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, advanced)

	advanced, err = repo.Advance(ctx, &domain.Checkpoint{Address: testutil.WatchedAddress, Slot: 40, Signature: "a", UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, advanced)

	cp, err := repo.Get(ctx, testutil.WatchedAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), cp.Slot)
	assert.Equal(t, "b", cp.Signature)
}
