package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name        string
		repo        *fakeLedgerRepository
		wantCount   int
		expectedErr error
	}{
		{
			name: "happy path balanced ledger",
			repo: &fakeLedgerRepository{totals: []LedgerTotal{
				{MemberID: 1, AssetID: 1, Deposited: decimal.RequireFromString("1.5"), Balance: decimal.RequireFromString("1.500000000")},
				{MemberID: 2, AssetID: 2, Deposited: decimal.NewFromInt(3), Balance: decimal.NewFromInt(3)},
			}},
		},
		{
			name:        "repo error surfaces",
			repo:        &fakeLedgerRepository{err: errors.New("db down")},
			expectedErr: errors.New("db down"),
		},
		{
			name: "balance ahead of deposits",
			repo: &fakeLedgerRepository{totals: []LedgerTotal{
				{MemberID: 1, AssetID: 1, Deposited: decimal.NewFromInt(1), Balance: decimal.NewFromInt(2)},
				{MemberID: 2, AssetID: 1, Deposited: decimal.NewFromInt(1), Balance: decimal.NewFromInt(1)},
			}},
			wantCount:   1,
			expectedErr: ErrInconsistentLedger,
		},
		{
			name: "balance missing for deposits",
			repo: &fakeLedgerRepository{totals: []LedgerTotal{
				{MemberID: 3, AssetID: 2, Deposited: decimal.NewFromInt(5), Balance: decimal.Zero},
			}},
			wantCount:   1,
			expectedErr: ErrInconsistentLedger,
		},
		{
			name: "empty ledger",
			repo: &fakeLedgerRepository{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewLedgerUseCase(tt.repo)
			got, err := uc.CheckConsistency(context.Background())

			if tt.expectedErr != nil {
				require.EqualError(t, err, tt.expectedErr.Error())
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestLedgerUseCase_RepositoryInvoked(t *testing.T) {
	repo := &fakeLedgerRepository{}
	uc := NewLedgerUseCase(repo)

	_, err := uc.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

type fakeLedgerRepository struct {
	totals []LedgerTotal
	err    error
	calls  int
}

func (f *fakeLedgerRepository) Totals(ctx context.Context) ([]LedgerTotal, error) {
	f.calls++
	return f.totals, f.err
}
