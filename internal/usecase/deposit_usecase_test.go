package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
	"github.com/iho/godeposit/internal/usecase/mocks"
)

func newDepositUseCase(deposits usecase.DepositRepository, balances usecase.BalanceRepository, outbox usecase.OutboxRepository) *usecase.DepositUseCase {
	return usecase.NewDepositUseCase(
		mocks.NewMockTransactionManager(),
		&mocks.MockRetrier{},
		deposits,
		balances,
		outbox,
		mocks.NewMockIDGenerator(),
	)
}

func TestRecordDeposit(t *testing.T) {
	deposits := mocks.NewMockDepositRepository()
	balances := mocks.NewMockBalanceRepository()
	outbox := mocks.NewMockOutboxRepository()
	uc := newDepositUseCase(deposits, balances, outbox)
	ctx := context.Background()

	input := usecase.RecordDepositInput{
		Account:      solAccount(watchedAddr, 7),
		TxID:         "sig-1",
		Counterparty: senderAddr,
		Amount:       decimal.RequireFromString("0.5"),
		Slot:         42,
	}

	result, err := uc.RecordDeposit(ctx, input)
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.True(t, result.Balance.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "0.500000000", result.Notification.Amount)
	assert.Equal(t, uint64(42), result.Notification.LedgerPosition)
	assert.NotEmpty(t, result.EventID)

	again, err := uc.RecordDeposit(ctx, input)
	require.NoError(t, err)
	assert.False(t, again.Applied)

	entry, err := uc.GetBalance(ctx, 7, domain.AssetIDSOL)
	require.NoError(t, err)
	assert.True(t, entry.Balance.Equal(decimal.RequireFromString("0.5")))
	assert.Len(t, outbox.Events(), 1)
}

func TestRecordDeposit_Validation(t *testing.T) {
	uc := newDepositUseCase(mocks.NewMockDepositRepository(), mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())
	ctx := context.Background()

	_, err := uc.RecordDeposit(ctx, usecase.RecordDepositInput{
		Account: solAccount(watchedAddr, 1),
		TxID:    "sig",
		Amount:  decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = uc.RecordDeposit(ctx, usecase.RecordDepositInput{TxID: "sig", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrWatchedAccountNotFound)
}

func TestRecordDeposit_UnknownCounterparty(t *testing.T) {
	uc := newDepositUseCase(mocks.NewMockDepositRepository(), mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())

	result, err := uc.RecordDeposit(context.Background(), usecase.RecordDepositInput{
		Account: solAccount(watchedAddr, 1),
		TxID:    "sig",
		Amount:  decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownCounterparty, result.Deposit.Counterparty)
}

func TestRecordDeposit_UniqueViolationIsDuplicate(t *testing.T) {
	deposits := mocks.NewMockDepositRepository()
	deposits.CreateFunc = func(context.Context, usecase.Transaction, *domain.DepositRecord) (bool, error) {
		return false, domain.ErrDuplicateDeposit
	}
	balances := mocks.NewMockBalanceRepository()
	uc := newDepositUseCase(deposits, balances, mocks.NewMockOutboxRepository())

	result, err := uc.RecordDeposit(context.Background(), usecase.RecordDepositInput{
		Account: solAccount(watchedAddr, 1),
		TxID:    "sig",
		Amount:  decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)

	_, err = balances.Get(context.Background(), 1, domain.AssetIDSOL)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

func TestRecordDeposit_FailureRollsBack(t *testing.T) {
	deposits := mocks.NewMockDepositRepository()
	balances := mocks.NewMockBalanceRepository()
	outbox := mocks.NewMockOutboxRepository()
	outbox.CreateFunc = func(context.Context, usecase.Transaction, *domain.OutboxEvent) error {
		return errors.New("disk full")
	}
	uc := newDepositUseCase(deposits, balances, outbox)

	_, err := uc.RecordDeposit(context.Background(), usecase.RecordDepositInput{
		Account: solAccount(watchedAddr, 1),
		TxID:    "sig",
		Amount:  decimal.NewFromInt(1),
	})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 0, deposits.Count())

	_, err = balances.Get(context.Background(), 1, domain.AssetIDSOL)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

func TestListDeposits(t *testing.T) {
	deposits := mocks.NewMockDepositRepository()
	uc := newDepositUseCase(deposits, mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())
	ctx := context.Background()

	for i, sig := range []string{"a", "b", "c"} {
		_, err := uc.RecordDeposit(ctx, usecase.RecordDepositInput{
			Account: solAccount(watchedAddr, 1),
			TxID:    sig,
			Amount:  decimal.NewFromInt(1),
			Slot:    uint64(i + 1),
		})
		require.NoError(t, err)
	}

	list, err := uc.ListDeposits(ctx, watchedAddr, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].TxID)

	_, err = uc.ListDeposits(ctx, "not-an-address", 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	got, err := uc.GetDeposit(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Slot)
}

func TestGetBalance_MissingIsZero(t *testing.T) {
	uc := newDepositUseCase(mocks.NewMockDepositRepository(), mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())

	entry, err := uc.GetBalance(context.Background(), 99, domain.AssetIDUSDT)
	require.NoError(t, err)
	assert.True(t, entry.Balance.IsZero())
	assert.Equal(t, int64(99), entry.MemberID)
}
