package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/godeposit/internal/domain"
)

// Reconciler runs one reconciliation over one address.
type Reconciler interface {
	ReconcileAccount(ctx context.Context, address string) (*ReconcileResult, error)
}

// BatchUseCase reconciles every active watched account with bounded concurrency.
type BatchUseCase struct {
	accountRepo WatchedAccountRepository
	reconciler  Reconciler
	locker      AccountLocker
	observer    Observer
	logger      zerolog.Logger
	concurrency int
	pageSize    int
	lockTTL     time.Duration
}

// BatchConfig holds the collaborators of a BatchUseCase.
type BatchConfig struct {
	AccountRepo WatchedAccountRepository
	Reconciler  Reconciler
	Locker      AccountLocker
	Observer    Observer
	Logger      zerolog.Logger
	Concurrency int
	PageSize    int
	LockTTL     time.Duration
}

// NewBatchUseCase creates a new BatchUseCase.
func NewBatchUseCase(cfg BatchConfig) *BatchUseCase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}

	return &BatchUseCase{
		accountRepo: cfg.AccountRepo,
		reconciler:  cfg.Reconciler,
		locker:      cfg.Locker,
		observer:    cfg.Observer,
		logger:      cfg.Logger.With().Str("component", "batch").Logger(),
		concurrency: cfg.Concurrency,
		pageSize:    cfg.PageSize,
		lockTTL:     cfg.LockTTL,
	}
}

// AccountFailure is one address whose run failed.
type AccountFailure struct {
	Address string
	Err     error
}

// BatchReport summarizes one pass over all active accounts.
type BatchReport struct {
	StartedAt   time.Time
	Elapsed     time.Duration
	Failures    []AccountFailure
	Accounts    int
	Succeeded   int
	Skipped     int
	NewDeposits int
}

// ReconcileAll reconciles every active account. Per-account failures are collected in the
// report; a fatal failure stops dispatching further accounts and is returned.
func (uc *BatchUseCase) ReconcileAll(ctx context.Context) (*BatchReport, error) {
	report := &BatchReport{StartedAt: time.Now().UTC()}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	offset := 0
dispatch:
	for {
		accounts, err := uc.accountRepo.ListActive(gctx, uc.pageSize, offset)
		if err != nil {
			if gctx.Err() != nil {
				break
			}
			_ = g.Wait()
			return nil, domain.Transient(err)
		}

		for _, account := range accounts {
			if gctx.Err() != nil {
				break dispatch
			}

			address := account.Address
			report.Accounts++

			g.Go(func() error {
				res, err := uc.reconcileOne(gctx, address)

				mu.Lock()
				defer mu.Unlock()

				switch {
				case errors.Is(err, domain.ErrAccountBusy):
					report.Skipped++
					return nil
				case err != nil:
					report.Failures = append(report.Failures, AccountFailure{Address: address, Err: err})
					if domain.IsFatal(err) && !isAccountStateError(err) {
						return err
					}
					return nil
				}

				report.Succeeded++
				report.NewDeposits += res.NewDeposits
				return nil
			})
		}

		if len(accounts) < uc.pageSize {
			break
		}
		offset += len(accounts)
	}

	err := g.Wait()
	report.Elapsed = time.Since(report.StartedAt)

	uc.logger.Info().
		Int("accounts", report.Accounts).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failures)).
		Int("skipped", report.Skipped).
		Int("new_deposits", report.NewDeposits).
		Dur("elapsed", report.Elapsed).
		Msg("batch reconciliation finished")

	if err != nil {
		return report, err
	}

	return report, ctx.Err()
}

// ReconcileOne runs a single locked reconciliation.
func (uc *BatchUseCase) ReconcileOne(ctx context.Context, address string) (*ReconcileResult, error) {
	return uc.reconcileOne(ctx, address)
}

func (uc *BatchUseCase) reconcileOne(ctx context.Context, address string) (*ReconcileResult, error) {
	if uc.locker == nil {
		return uc.reconciler.ReconcileAccount(ctx, address)
	}

	release, err := uc.locker.Acquire(ctx, address, uc.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrAccountBusy) {
			uc.observer.ReconcileFinished(OutcomeBusy, 0)
			uc.logger.Debug().Str("address", address).Msg("reconciliation already in flight, skipping")
			return nil, err
		}
		return nil, domain.Transient(err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			uc.logger.Warn().Err(err).Str("address", address).Msg("release account lock failed")
		}
	}()

	return uc.reconciler.ReconcileAccount(ctx, address)
}

// isAccountStateError reports failures scoped to one account rather than the whole batch.
func isAccountStateError(err error) bool {
	return errors.Is(err, domain.ErrWatchedAccountInactive) ||
		errors.Is(err, domain.ErrWatchedAccountNotFound) ||
		errors.Is(err, domain.ErrInvalidAddress) ||
		errors.Is(err, domain.ErrMalformedTransaction)
}
