package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/godeposit/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks github.com/iho/godeposit/internal/usecase ChainReader,Publisher

// ChainReader reads account state and history from the chain.
type ChainReader interface {
	// Balance returns the current balance of the account's asset in minor units.
	Balance(ctx context.Context, account *domain.WatchedAccount) (uint64, error)
	// HistorySince returns at most limit entries newer than afterTxID and older than
	// beforeTxID (either may be empty), newest first, in one round trip.
	HistorySince(ctx context.Context, address, afterTxID, beforeTxID string, limit int) ([]domain.HistoryEntry, error)
	// Transaction returns the recorded effects of one transaction.
	Transaction(ctx context.Context, txID string) (*domain.RawTransaction, error)
}

// WatchedAccountRepository defines read access to provisioned deposit addresses.
type WatchedAccountRepository interface {
	GetByAddress(ctx context.Context, address string) (*domain.WatchedAccount, error)
	ListActive(ctx context.Context, limit, offset int) ([]*domain.WatchedAccount, error)
}

// CheckpointRepository defines data access for reconciliation cursors.
type CheckpointRepository interface {
	Get(ctx context.Context, address string) (*domain.Checkpoint, error)
	// Advance moves the cursor forward. It reports false when the stored slot is ahead.
	Advance(ctx context.Context, checkpoint *domain.Checkpoint) (bool, error)
}

// DepositRepository defines data access for deposit records.
type DepositRepository interface {
	ExistsByTxID(ctx context.Context, tx Transaction, txID string) (bool, error)
	// Create inserts the record. It reports false when the tx id is already present.
	Create(ctx context.Context, tx Transaction, deposit *domain.DepositRecord) (bool, error)
	GetByTxID(ctx context.Context, txID string) (*domain.DepositRecord, error)
	ListByAddress(ctx context.Context, address string, limit, offset int) ([]*domain.DepositRecord, error)
}

// BalanceRepository defines data access for running balances.
type BalanceRepository interface {
	// Credit adds amount to the (member, asset) balance, creating it if absent, and returns the new total.
	Credit(ctx context.Context, tx Transaction, memberID, assetID int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error)
	Get(ctx context.Context, memberID, assetID int64) (*domain.BalanceEntry, error)
}

// LedgerTotal compares the deposit sum with the stored balance of one (member, asset).
type LedgerTotal struct {
	MemberID  int64
	AssetID   int64
	Deposited decimal.Decimal
	Balance   decimal.Decimal
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context) ([]LedgerTotal, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	// GetUnpublished returns unpublished events created before olderThan, oldest first.
	GetUnpublished(ctx context.Context, limit int, olderThan time.Time) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) (int64, error)
}

// AnomalyRepository defines data access for scan anomalies.
type AnomalyRepository interface {
	Create(ctx context.Context, anomaly *domain.ScanAnomaly) error
	ListByAddress(ctx context.Context, address string, limit int) ([]*domain.ScanAnomaly, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on retryable storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final value.
	Update(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete releases a key so the next delivery can claim it.
	Delete(ctx context.Context, key string) error
}

// AccountLocker keeps at most one reconciliation run in flight per address.
type AccountLocker interface {
	// Acquire returns a release func, or domain.ErrAccountBusy when the address is held.
	Acquire(ctx context.Context, address string, ttl time.Duration) (func(context.Context) error, error)
}

// Publisher sends one deposit notification to the broker.
type Publisher interface {
	Publish(ctx context.Context, notification *domain.DepositNotification) error
	Close() error
}

// MessageHandler processes one delivered notification. A non-nil error requeues the message.
type MessageHandler func(ctx context.Context, notification *domain.DepositNotification) error

// Subscriber delivers notifications one at a time until ctx is done.
type Subscriber interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

// AlertSink forwards a human-readable line to an operator channel.
type AlertSink interface {
	Send(ctx context.Context, text string) error
}

// Observer receives operational signals from the use cases.
type Observer interface {
	DepositRecorded(asset string)
	DepositDuplicate()
	ScanAnomaly(reason string)
	ReconcileFinished(outcome string, elapsed time.Duration)
	CheckpointAdvanced(address string, slot uint64)
	NotificationPublished(ok bool)
	NotificationConsumed(outcome string)
	OutboxRelayed(count int)
}

// NopObserver discards every signal.
type NopObserver struct{}

func (NopObserver) DepositRecorded(string)                  {}
func (NopObserver) DepositDuplicate()                       {}
func (NopObserver) ScanAnomaly(string)                      {}
func (NopObserver) ReconcileFinished(string, time.Duration) {}
func (NopObserver) CheckpointAdvanced(string, uint64)       {}
func (NopObserver) NotificationPublished(bool)              {}
func (NopObserver) NotificationConsumed(string)             {}
func (NopObserver) OutboxRelayed(int)                       {}
