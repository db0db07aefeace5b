package usecase

import (
	"context"
	"time"

	"github.com/iho/godeposit/internal/domain"
)

// CheckpointUseCase handles reconciliation cursors.
type CheckpointUseCase struct {
	checkpointRepo CheckpointRepository
	observer       Observer
}

// NewCheckpointUseCase creates a new CheckpointUseCase.
func NewCheckpointUseCase(checkpointRepo CheckpointRepository, observer Observer) *CheckpointUseCase {
	if observer == nil {
		observer = NopObserver{}
	}

	return &CheckpointUseCase{
		checkpointRepo: checkpointRepo,
		observer:       observer,
	}
}

// GetCheckpoint returns the cursor of an address, or domain.ErrCheckpointNotFound.
func (uc *CheckpointUseCase) GetCheckpoint(ctx context.Context, address string) (*domain.Checkpoint, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	return uc.checkpointRepo.Get(ctx, address)
}

// Advance moves the cursor of an address to (slot, txID). It never rewinds:
// a slot behind the stored one reports false.
func (uc *CheckpointUseCase) Advance(ctx context.Context, address string, slot uint64, txID string) (bool, error) {
	advanced, err := uc.checkpointRepo.Advance(ctx, &domain.Checkpoint{
		Address:   address,
		Slot:      slot,
		Signature: txID,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}

	if advanced {
		uc.observer.CheckpointAdvanced(address, slot)
	}

	return advanced, nil
}
