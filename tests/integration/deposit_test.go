package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
	"github.com/iho/godeposit/tests/testutil"
)

func TestRecordDepositIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	account := db.CreateWallet(ctx, testutil.WatchedAddress, 7)
	s := newStack(db, newChain(), &publisher{}, 20)

	input := usecase.RecordDepositInput{
		Account:      account,
		TxID:         "sig-1",
		Counterparty: testutil.SenderAddress,
		Amount:       decimal.RequireFromString("1.25"),
		Slot:         100,
		ConfirmedAt:  time.Now().UTC(),
	}

	first, err := s.deposits.RecordDeposit(ctx, input)
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := s.deposits.RecordDeposit(ctx, input)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	entry, err := s.deposits.GetBalance(ctx, 7, domain.AssetIDSOL)
	require.NoError(t, err)
	assert.True(t, entry.Balance.Equal(decimal.RequireFromString("1.25")), entry.Balance.String())

	assert.Equal(t, 1, db.CountRows(ctx, "deposits"))
	assert.Equal(t, 1, db.CountRows(ctx, "outbox_events"))

	_, err = s.ledger.CheckConsistency(ctx)
	assert.NoError(t, err)
}

func TestRecordDepositConcurrentReplays(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	account := db.CreateWallet(ctx, testutil.WatchedAddress, 7)
	s := newStack(db, newChain(), &publisher{}, 20)

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.deposits.RecordDeposit(ctx, usecase.RecordDepositInput{
				Account: account,
				TxID:    "sig-race",
				Amount:  decimal.NewFromInt(1),
				Slot:    5,
			})
			if !assert.NoError(t, err) {
				return
			}
			if result.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)

	entry, err := s.deposits.GetBalance(ctx, 7, domain.AssetIDSOL)
	require.NoError(t, err)
	assert.True(t, entry.Balance.Equal(decimal.NewFromInt(1)))
}
