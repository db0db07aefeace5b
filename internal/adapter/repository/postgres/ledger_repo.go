package postgres

import (
	"context"

	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
	"github.com/iho/godeposit/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// Totals returns deposit sums next to stored balances for every (member, asset).
func (r *LedgerRepository) Totals(ctx context.Context) ([]usecase.LedgerTotal, error) {
	rows, err := r.queries.LedgerTotals(ctx)
	if err != nil {
		return nil, err
	}

	totals := make([]usecase.LedgerTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, usecase.LedgerTotal{
			MemberID:  row.MemberID,
			AssetID:   row.AssetID,
			Deposited: numericToDecimal(row.Deposited),
			Balance:   numericToDecimal(row.Balance),
		})
	}

	return totals, nil
}
