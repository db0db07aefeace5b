package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
	"github.com/iho/godeposit/internal/usecase"
)

// BalanceRepository implements usecase.BalanceRepository.
type BalanceRepository struct {
	queries *generated.Queries
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db generated.DBTX) *BalanceRepository {
	return &BalanceRepository{queries: generated.New(db)}
}

// Credit adds amount to the running balance in one upsert and returns the new total.
func (r *BalanceRepository) Credit(ctx context.Context, tx usecase.Transaction, memberID, assetID int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	total, err := txQueries(tx).CreditBalance(ctx, generated.CreditBalanceParams{
		MemberID:  memberID,
		AssetID:   assetID,
		Balance:   decimalToNumeric(amount),
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(total), nil
}

// Get retrieves the balance entry of (member, asset).
func (r *BalanceRepository) Get(ctx context.Context, memberID, assetID int64) (*domain.BalanceEntry, error) {
	row, err := r.queries.GetBalance(ctx, generated.GetBalanceParams{MemberID: memberID, AssetID: assetID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBalanceNotFound
		}

		return nil, err
	}

	return &domain.BalanceEntry{
		MemberID:  row.MemberID,
		AssetID:   row.AssetID,
		Balance:   numericToDecimal(row.Balance),
		UpdatedAt: row.UpdatedAt.Time,
	}, nil
}
