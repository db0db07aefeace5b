package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
	"github.com/iho/godeposit/internal/usecase"
)

const depositsTxIDKey = "deposits_tx_id_key"

// DepositRepository implements usecase.DepositRepository.
type DepositRepository struct {
	queries *generated.Queries
}

// NewDepositRepository creates a new DepositRepository.
func NewDepositRepository(db generated.DBTX) *DepositRepository {
	return &DepositRepository{queries: generated.New(db)}
}

// ExistsByTxID reports whether a deposit with txID is visible to tx.
func (r *DepositRepository) ExistsByTxID(ctx context.Context, tx usecase.Transaction, txID string) (bool, error) {
	return txQueries(tx).DepositExists(ctx, txID)
}

// Create inserts the deposit. A concurrent insert of the same tx id yields false.
func (r *DepositRepository) Create(ctx context.Context, tx usecase.Transaction, deposit *domain.DepositRecord) (bool, error) {
	_, err := txQueries(tx).CreateDeposit(ctx, generated.CreateDepositParams{
		ID:           deposit.ID,
		TxID:         deposit.TxID,
		Address:      deposit.Address,
		MemberID:     deposit.MemberID,
		AssetID:      deposit.AssetID,
		Amount:       decimalToNumeric(deposit.Amount),
		Counterparty: deposit.Counterparty,
		Slot:         slotToInt8(deposit.Slot),
		ConfirmedAt:  timeToPgTimestamptz(deposit.ConfirmedAt),
		CreatedAt:    timeToPgTimestamptz(deposit.CreatedAt),
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case isUniqueViolation(err, depositsTxIDKey):
		return false, domain.ErrDuplicateDeposit
	default:
		return false, err
	}
}

// GetByTxID retrieves a deposit by its transaction id.
func (r *DepositRepository) GetByTxID(ctx context.Context, txID string) (*domain.DepositRecord, error) {
	row, err := r.queries.GetDepositByTxID(ctx, txID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDepositNotFound
		}

		return nil, err
	}

	return rowToDeposit(row), nil
}

// ListByAddress lists deposits of an address, newest slot first.
func (r *DepositRepository) ListByAddress(ctx context.Context, address string, limit, offset int) ([]*domain.DepositRecord, error) {
	rows, err := r.queries.ListDepositsByAddress(ctx, generated.ListDepositsByAddressParams{
		Address: address,
		Limit:   int32(limit),
		Offset:  int32(offset),
	})
	if err != nil {
		return nil, err
	}

	deposits := make([]*domain.DepositRecord, 0, len(rows))
	for _, row := range rows {
		deposits = append(deposits, rowToDeposit(row))
	}

	return deposits, nil
}

func rowToDeposit(row generated.Deposit) *domain.DepositRecord {
	return &domain.DepositRecord{
		ID:           row.ID,
		TxID:         row.TxID,
		Address:      row.Address,
		MemberID:     row.MemberID,
		AssetID:      row.AssetID,
		Amount:       numericToDecimal(row.Amount),
		Counterparty: row.Counterparty,
		Slot:         int8ToSlot(row.Slot),
		ConfirmedAt:  row.ConfirmedAt.Time,
		CreatedAt:    row.CreatedAt.Time,
	}
}
