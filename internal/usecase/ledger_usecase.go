package usecase

import (
	"context"
	"errors"
)

var (
	// ErrInconsistentLedger is returned when a balance differs from the sum of its deposits.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balance does not equal deposit sum")
)

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency verifies that every balance equals the sum of its deposits.
// It returns the mismatching totals and ErrInconsistentLedger when there are any.
// The check holds only while this service is the sole writer of balances.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) ([]LedgerTotal, error) {
	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return nil, err
	}

	var discrepancies []LedgerTotal
	for _, t := range totals {
		if !t.Deposited.Equal(t.Balance) {
			discrepancies = append(discrepancies, t)
		}
	}

	if len(discrepancies) > 0 {
		return discrepancies, ErrInconsistentLedger
	}

	return nil, nil
}
