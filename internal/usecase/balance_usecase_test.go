package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
	"github.com/iho/godeposit/internal/usecase/mocks"
)

func TestGetBalances(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockChainReader(ctrl)
	account := solAccount(watchedAddr, 7)

	chain.EXPECT().Balance(gomock.Any(), account).Return(uint64(1_500_000_000), nil).Times(1)

	deposits := newDepositUseCase(mocks.NewMockDepositRepository(), mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())
	_, err := deposits.RecordDeposit(context.Background(), usecase.RecordDepositInput{
		Account: account,
		TxID:    "sig-1",
		Amount:  decimal.RequireFromString("1.25"),
	})
	require.NoError(t, err)

	uc := usecase.NewBalanceUseCase(mocks.NewMockWatchedAccountRepository(account), chain, deposits, mocks.NewMockCache(), time.Minute)

	first, err := uc.GetBalances(context.Background(), watchedAddr)
	require.NoError(t, err)
	assert.Equal(t, "1.500000000", first.OnChain)
	assert.Equal(t, "1.250000000", first.Ledger)
	assert.Equal(t, "SOL", first.Asset)
	assert.False(t, first.Cached)

	second, err := uc.GetBalances(context.Background(), watchedAddr)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.OnChain, second.OnChain)
}

func TestGetBalances_ChainErrorIsTransient(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockChainReader(ctrl)
	account := solAccount(watchedAddr, 7)

	chain.EXPECT().Balance(gomock.Any(), account).Return(uint64(0), errors.New("timeout"))

	deposits := newDepositUseCase(mocks.NewMockDepositRepository(), mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())
	uc := usecase.NewBalanceUseCase(mocks.NewMockWatchedAccountRepository(account), chain, deposits, nil, 0)

	_, err := uc.GetBalances(context.Background(), watchedAddr)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestInvalidateBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	chain := mocks.NewMockChainReader(ctrl)
	account := solAccount(watchedAddr, 7)

	chain.EXPECT().Balance(gomock.Any(), account).Return(uint64(1), nil).Times(2)

	deposits := newDepositUseCase(mocks.NewMockDepositRepository(), mocks.NewMockBalanceRepository(), mocks.NewMockOutboxRepository())
	uc := usecase.NewBalanceUseCase(mocks.NewMockWatchedAccountRepository(account), chain, deposits, mocks.NewMockCache(), time.Minute)
	ctx := context.Background()

	_, err := uc.GetBalances(ctx, watchedAddr)
	require.NoError(t, err)
	require.NoError(t, uc.InvalidateBalance(ctx, watchedAddr))
	_, err = uc.GetBalances(ctx, watchedAddr)
	require.NoError(t, err)
}
