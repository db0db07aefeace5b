package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
)

// CheckpointRepository implements usecase.CheckpointRepository.
type CheckpointRepository struct {
	queries *generated.Queries
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(db generated.DBTX) *CheckpointRepository {
	return &CheckpointRepository{queries: generated.New(db)}
}

// Get retrieves the cursor of an address.
func (r *CheckpointRepository) Get(ctx context.Context, address string) (*domain.Checkpoint, error) {
	row, err := r.queries.GetCheckpoint(ctx, address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCheckpointNotFound
		}

		return nil, err
	}

	return &domain.Checkpoint{
		Address:   row.Address,
		Slot:      int8ToSlot(row.Slot),
		Signature: row.Signature,
		UpdatedAt: row.UpdatedAt.Time,
	}, nil
}

// Advance upserts the cursor unless the stored slot is ahead.
func (r *CheckpointRepository) Advance(ctx context.Context, checkpoint *domain.Checkpoint) (bool, error) {
	n, err := r.queries.AdvanceCheckpoint(ctx, generated.AdvanceCheckpointParams{
		Address:   checkpoint.Address,
		Slot:      slotToInt8(checkpoint.Slot),
		Signature: checkpoint.Signature,
		UpdatedAt: timeToPgTimestamptz(checkpoint.UpdatedAt),
	})
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
