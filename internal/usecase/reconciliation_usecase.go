package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
)

// ReconciliationUseCase scans the history of one watched address and brings the ledger up to date.
type ReconciliationUseCase struct {
	accountRepo    WatchedAccountRepository
	checkpointRepo CheckpointRepository
	anomalyRepo    AnomalyRepository
	chain          ChainReader
	checkpoints    *CheckpointUseCase
	deposits       *DepositUseCase
	notifier       *Notifier
	observer       Observer
	logger         zerolog.Logger
	batchSize      int
}

// ReconciliationConfig holds the collaborators of a ReconciliationUseCase.
type ReconciliationConfig struct {
	AccountRepo    WatchedAccountRepository
	CheckpointRepo CheckpointRepository
	AnomalyRepo    AnomalyRepository
	Chain          ChainReader
	Deposits       *DepositUseCase
	Notifier       *Notifier
	Observer       Observer
	Logger         zerolog.Logger
	BatchSize      int // history entries per round trip
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(cfg ReconciliationConfig) *ReconciliationUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultScanBatchSize
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}

	return &ReconciliationUseCase{
		accountRepo:    cfg.AccountRepo,
		checkpointRepo: cfg.CheckpointRepo,
		anomalyRepo:    cfg.AnomalyRepo,
		chain:          cfg.Chain,
		checkpoints:    NewCheckpointUseCase(cfg.CheckpointRepo, cfg.Observer),
		deposits:       cfg.Deposits,
		notifier:       cfg.Notifier,
		observer:       cfg.Observer,
		logger:         cfg.Logger.With().Str("component", "reconciler").Logger(),
		batchSize:      cfg.BatchSize,
	}
}

// ReconcileResult summarizes one run over one address.
type ReconcileResult struct {
	Checkpoint  *domain.Checkpoint // cursor after the run, nil when nothing was ever scanned
	Address     string
	NewDeposits int
	Duplicates  int
	Scanned     int
	Anomalies   int
	Advanced    bool
}

// ReconcileAccount runs one bounded scan for address: load checkpoint, fetch history after it,
// process entries oldest first, then advance the checkpoint once to the highest slot reached.
// Any chain or ledger failure aborts the run before the checkpoint moves.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, address string) (*ReconcileResult, error) {
	start := time.Now()

	result, err := uc.reconcile(ctx, address)

	outcome := OutcomeSuccess
	switch {
	case domain.IsFatal(err):
		outcome = OutcomeFatal
	case err != nil:
		outcome = OutcomeTransient
	}
	uc.observer.ReconcileFinished(outcome, time.Since(start))

	if err != nil {
		uc.logger.Error().Err(err).Str("address", address).Str("outcome", outcome).Msg("reconciliation failed")
		return nil, err
	}

	uc.logger.Info().
		Str("address", address).
		Int("scanned", result.Scanned).
		Int("new_deposits", result.NewDeposits).
		Int("duplicates", result.Duplicates).
		Int("anomalies", result.Anomalies).
		Bool("advanced", result.Advanced).
		Dur("elapsed", time.Since(start)).
		Msg("reconciliation finished")

	return result, nil
}

func (uc *ReconciliationUseCase) reconcile(ctx context.Context, address string) (*ReconcileResult, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, domain.Fatal(err)
	}

	account, err := uc.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrWatchedAccountNotFound) {
			return nil, domain.Fatal(err)
		}
		return nil, domain.Transient(fmt.Errorf("load watched account: %w", err))
	}

	if !account.IsActive() {
		return nil, domain.Fatal(fmt.Errorf("%s: %w", address, domain.ErrWatchedAccountInactive))
	}

	// 1. Load checkpoint, none means from genesis
	checkpoint, err := uc.checkpointRepo.Get(ctx, address)
	if err != nil {
		if !errors.Is(err, domain.ErrCheckpointNotFound) {
			return nil, domain.Transient(fmt.Errorf("load checkpoint: %w", err))
		}
		checkpoint = nil
	}

	result := &ReconcileResult{Address: address, Checkpoint: checkpoint}

	// 2. Fetch everything after the checkpoint
	entries, err := uc.fetch(ctx, account.HistoryAddress(), checkpoint.After())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return result, nil
	}

	// 3. Oldest first
	slices.Reverse(entries)

	// 4. Process in order, 5. tracking the highest position reached
	var last *domain.HistoryEntry
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return nil, domain.Transient(err)
		}

		entry := &entries[i]
		if err := uc.processEntry(ctx, account, entry, result); err != nil {
			return nil, err
		}

		result.Scanned++
		if last == nil || entry.Slot >= last.Slot {
			last = entry
		}
	}

	// 6. Advance once, after the loop
	advanced, err := uc.checkpoints.Advance(ctx, address, last.Slot, last.TxID)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("advance checkpoint: %w", err))
	}

	result.Advanced = advanced
	if advanced {
		result.Checkpoint = &domain.Checkpoint{
			Address:   address,
			Slot:      last.Slot,
			Signature: last.TxID,
			UpdatedAt: time.Now().UTC(),
		}
	} else {
		uc.logger.Warn().
			Str("address", address).
			Uint64("slot", last.Slot).
			Msg("checkpoint is already ahead of this run")
	}

	return result, nil
}

// fetch pages backwards from the chain tip until a short page, so windows larger than
// one batch are fully covered. Entries are returned newest first.
func (uc *ReconciliationUseCase) fetch(ctx context.Context, address, after string) ([]domain.HistoryEntry, error) {
	var (
		entries []domain.HistoryEntry
		before  string
	)

	for {
		page, err := uc.chain.HistorySince(ctx, address, after, before, uc.batchSize)
		if err != nil {
			return nil, domain.Transient(fmt.Errorf("fetch history of %s: %w", address, err))
		}

		entries = append(entries, page...)
		if len(page) < uc.batchSize {
			return entries, nil
		}

		before = page[len(page)-1].TxID
	}
}

func (uc *ReconciliationUseCase) processEntry(
	ctx context.Context,
	account *domain.WatchedAccount,
	entry *domain.HistoryEntry,
	result *ReconcileResult,
) error {
	if entry.Failed {
		return nil
	}

	tx, err := uc.chain.Transaction(ctx, entry.TxID)
	if err != nil {
		// not-found and undecodable records are skipped like malformed ones
		if reason, skip := fetchAnomaly(err); skip {
			result.Anomalies++
			uc.recordAnomaly(ctx, account, entry, reason, err)
			return nil
		}
		return domain.Transient(fmt.Errorf("fetch transaction %s: %w", entry.TxID, err))
	}

	transfer, ok, err := domain.ExtractTransfer(tx, account.Address, account.Asset)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedTransaction) {
			reason := domain.AnomalyMalformedBalance
			if tx == nil || !tx.HasMeta {
				reason = domain.AnomalyMissingMeta
			}
			result.Anomalies++
			uc.recordAnomaly(ctx, account, entry, reason, err)
			return nil
		}
		return err
	}
	if !ok {
		return nil
	}

	confirmedAt := time.Time{}
	if entry.BlockTime != nil {
		confirmedAt = *entry.BlockTime
	} else if tx.BlockTime != nil {
		confirmedAt = *tx.BlockTime
	}

	recorded, err := uc.deposits.RecordDeposit(ctx, RecordDepositInput{
		Account:      account,
		TxID:         entry.TxID,
		Counterparty: transfer.Counterparty,
		Amount:       account.Asset.FromMinor(transfer.Amount),
		Slot:         entry.Slot,
		ConfirmedAt:  confirmedAt,
	})
	if err != nil {
		return err
	}

	if !recorded.Applied {
		result.Duplicates++
		uc.observer.DepositDuplicate()
		uc.logger.Debug().Str("tx_id", entry.TxID).Str("address", account.Address).Msg("deposit already recorded")
		return nil
	}

	result.NewDeposits++
	uc.observer.DepositRecorded(account.Asset.Symbol)
	uc.logger.Info().
		Str("tx_id", entry.TxID).
		Str("address", account.Address).
		Str("amount", account.Asset.Format(recorded.Deposit.Amount)).
		Str("asset", account.Asset.Symbol).
		Str("counterparty", recorded.Deposit.Counterparty).
		Msg("deposit recorded")

	uc.notifier.Publish(ctx, recorded.Notification, recorded.EventID)

	return nil
}

// recordAnomaly persists a data-shape anomaly best-effort.
func (uc *ReconciliationUseCase) recordAnomaly(
	ctx context.Context,
	account *domain.WatchedAccount,
	entry *domain.HistoryEntry,
	reason string,
	cause error,
) {
	uc.observer.ScanAnomaly(reason)
	uc.logger.Warn().Err(cause).
		Str("tx_id", entry.TxID).
		Str("address", account.Address).
		Str("reason", reason).
		Msg("transaction skipped as not a deposit")

	if uc.anomalyRepo == nil {
		return
	}

	err := uc.anomalyRepo.Create(ctx, &domain.ScanAnomaly{
		TxID:      entry.TxID,
		Address:   account.Address,
		Slot:      entry.Slot,
		Reason:    reason,
		Detail:    cause.Error(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		uc.logger.Warn().Err(err).Str("tx_id", entry.TxID).Msg("persist scan anomaly failed")
	}
}

// fetchAnomaly reports whether a Transaction error concerns only that entry.
func fetchAnomaly(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		return domain.AnomalyNotFound, true
	case errors.Is(err, domain.ErrMalformedTransaction):
		return domain.AnomalyUndecodable, true
	}
	return "", false
}
