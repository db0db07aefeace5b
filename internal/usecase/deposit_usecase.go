package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/godeposit/internal/domain"
)

// DepositUseCase handles the deposit ledger.
type DepositUseCase struct {
	txManager   TransactionManager
	retrier     Retrier
	depositRepo DepositRepository
	balanceRepo BalanceRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewDepositUseCase creates a new DepositUseCase.
func NewDepositUseCase(
	txManager TransactionManager,
	retrier Retrier,
	depositRepo DepositRepository,
	balanceRepo BalanceRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
) *DepositUseCase {
	return &DepositUseCase{
		txManager:   txManager,
		retrier:     retrier,
		depositRepo: depositRepo,
		balanceRepo: balanceRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordDepositInput represents one detected inbound transfer.
type RecordDepositInput struct {
	ConfirmedAt  time.Time
	Account      *domain.WatchedAccount
	TxID         string
	Counterparty string
	Amount       decimal.Decimal
	Slot         uint64
}

// RecordDepositResult reports whether the deposit was newly applied.
// Deposit, Notification and EventID are set only when Applied is true.
type RecordDepositResult struct {
	Deposit      *domain.DepositRecord
	Notification *domain.DepositNotification
	EventID      string
	Balance      decimal.Decimal
	Applied      bool
}

// RecordDeposit writes the deposit, credits the balance and queues the outbox event atomically.
// A tx id that is already recorded is not an error: the result has Applied=false.
func (uc *DepositUseCase) RecordDeposit(ctx context.Context, input RecordDepositInput) (*RecordDepositResult, error) {
	if input.Account == nil {
		return nil, domain.ErrWatchedAccountNotFound
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if input.TxID == "" {
		return nil, domain.ErrInvalidTxID
	}

	var result *RecordDepositResult
	err := uc.retrier.Retry(ctx, func() error {
		r, err := uc.recordOnce(ctx, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateDeposit) {
			return &RecordDepositResult{Applied: false}, nil
		}
		return nil, domain.Transient(fmt.Errorf("record deposit %s: %w", input.TxID, err))
	}

	return result, nil
}

func (uc *DepositUseCase) recordOnce(ctx context.Context, input RecordDepositInput) (*RecordDepositResult, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	// 1. Begin transaction
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 2. Existing tx id aborts the unit
	exists, err := uc.depositRepo.ExistsByTxID(ctx, tx, input.TxID)
	if err != nil {
		return nil, err
	}
	if exists {
		return &RecordDepositResult{Applied: false}, nil
	}

	// 3. Insert under the unique constraint
	now := uc.now()
	account := input.Account

	confirmedAt := input.ConfirmedAt
	if confirmedAt.IsZero() {
		confirmedAt = now
	}

	counterparty := input.Counterparty
	if counterparty == "" {
		counterparty = domain.UnknownCounterparty
	}

	deposit := &domain.DepositRecord{
		ID:           uc.idGen.Generate(),
		TxID:         input.TxID,
		Address:      account.Address,
		MemberID:     account.MemberID,
		AssetID:      account.Asset.ID,
		Amount:       input.Amount,
		Counterparty: counterparty,
		Slot:         input.Slot,
		ConfirmedAt:  confirmedAt,
		CreatedAt:    now,
	}

	created, err := uc.depositRepo.Create(ctx, tx, deposit)
	if err != nil {
		return nil, err
	}
	if !created {
		return &RecordDepositResult{Applied: false}, nil
	}

	// 4. Credit the running balance
	balance, err := uc.balanceRepo.Credit(ctx, tx, account.MemberID, account.Asset.ID, input.Amount, now)
	if err != nil {
		return nil, err
	}

	// 5. Queue the notification in the same unit
	notification := domain.NewDepositNotification(deposit, account.Asset, now)
	event, err := domain.NewDepositConfirmedEvent(uc.idGen.Generate(), notification, now)
	if err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	// 6. Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &RecordDepositResult{
		Deposit:      deposit,
		Notification: notification,
		EventID:      event.ID,
		Balance:      balance,
		Applied:      true,
	}, nil
}

// GetDeposit retrieves a deposit by transaction id.
func (uc *DepositUseCase) GetDeposit(ctx context.Context, txID string) (*domain.DepositRecord, error) {
	return uc.depositRepo.GetByTxID(ctx, txID)
}

// ListDeposits lists deposits received by an address, newest first.
func (uc *DepositUseCase) ListDeposits(ctx context.Context, address string, limit, offset int) ([]*domain.DepositRecord, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}

	return uc.depositRepo.ListByAddress(ctx, address, limit, offset)
}

// GetBalance returns the ledger balance of a member for an asset. A missing entry is zero.
func (uc *DepositUseCase) GetBalance(ctx context.Context, memberID, assetID int64) (*domain.BalanceEntry, error) {
	entry, err := uc.balanceRepo.Get(ctx, memberID, assetID)
	if errors.Is(err, domain.ErrBalanceNotFound) {
		return &domain.BalanceEntry{MemberID: memberID, AssetID: assetID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}
