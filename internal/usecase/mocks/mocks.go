package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

// stage runs fn at commit when tx is a *MockTransaction, immediately otherwise.
func stage(tx usecase.Transaction, fn func()) {
	if mt, ok := tx.(*MockTransaction); ok {
		mt.OnCommit(fn)
		return
	}
	fn()
}

// MockWatchedAccountRepository is an in-memory WatchedAccountRepository.
type MockWatchedAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.WatchedAccount

	GetByAddressFunc func(ctx context.Context, address string) (*domain.WatchedAccount, error)
	ListActiveFunc   func(ctx context.Context, limit, offset int) ([]*domain.WatchedAccount, error)
}

func NewMockWatchedAccountRepository(accounts ...*domain.WatchedAccount) *MockWatchedAccountRepository {
	m := &MockWatchedAccountRepository{accounts: make(map[string]*domain.WatchedAccount)}
	for _, a := range accounts {
		m.accounts[a.Address] = a
	}
	return m
}

func (m *MockWatchedAccountRepository) Add(account *domain.WatchedAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Address] = account
}

func (m *MockWatchedAccountRepository) GetByAddress(ctx context.Context, address string) (*domain.WatchedAccount, error) {
	if m.GetByAddressFunc != nil {
		return m.GetByAddressFunc(ctx, address)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[address]; ok {
		return a, nil
	}
	return nil, domain.ErrWatchedAccountNotFound
}

func (m *MockWatchedAccountRepository) ListActive(ctx context.Context, limit, offset int) ([]*domain.WatchedAccount, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []*domain.WatchedAccount
	for _, a := range m.accounts {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Address < active[j].Address })
	if offset >= len(active) {
		return nil, nil
	}
	end := min(offset+limit, len(active))
	return active[offset:end], nil
}

// MockCheckpointRepository is an in-memory CheckpointRepository with monotonic advance.
type MockCheckpointRepository struct {
	mu          sync.RWMutex
	checkpoints map[string]*domain.Checkpoint

	GetFunc     func(ctx context.Context, address string) (*domain.Checkpoint, error)
	AdvanceFunc func(ctx context.Context, checkpoint *domain.Checkpoint) (bool, error)
}

func NewMockCheckpointRepository() *MockCheckpointRepository {
	return &MockCheckpointRepository{checkpoints: make(map[string]*domain.Checkpoint)}
}

func (m *MockCheckpointRepository) Get(ctx context.Context, address string) (*domain.Checkpoint, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, address)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cp, ok := m.checkpoints[address]; ok {
		c := *cp
		return &c, nil
	}
	return nil, domain.ErrCheckpointNotFound
}

func (m *MockCheckpointRepository) Advance(ctx context.Context, checkpoint *domain.Checkpoint) (bool, error) {
	if m.AdvanceFunc != nil {
		return m.AdvanceFunc(ctx, checkpoint)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.checkpoints[checkpoint.Address]; ok && cur.Slot > checkpoint.Slot {
		return false, nil
	}
	c := *checkpoint
	m.checkpoints[checkpoint.Address] = &c
	return true, nil
}

// MockDepositRepository is an in-memory DepositRepository unique on tx id.
type MockDepositRepository struct {
	mu       sync.RWMutex
	deposits map[string]*domain.DepositRecord

	ExistsByTxIDFunc func(ctx context.Context, tx usecase.Transaction, txID string) (bool, error)
	CreateFunc       func(ctx context.Context, tx usecase.Transaction, deposit *domain.DepositRecord) (bool, error)
}

func NewMockDepositRepository() *MockDepositRepository {
	return &MockDepositRepository{deposits: make(map[string]*domain.DepositRecord)}
}

func (m *MockDepositRepository) ExistsByTxID(ctx context.Context, tx usecase.Transaction, txID string) (bool, error) {
	if m.ExistsByTxIDFunc != nil {
		return m.ExistsByTxIDFunc(ctx, tx, txID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.deposits[txID]
	return ok, nil
}

func (m *MockDepositRepository) Create(ctx context.Context, tx usecase.Transaction, deposit *domain.DepositRecord) (bool, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, deposit)
	}
	m.mu.RLock()
	_, exists := m.deposits[deposit.TxID]
	m.mu.RUnlock()
	if exists {
		return false, nil
	}
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.deposits[deposit.TxID] = deposit
	})
	return true, nil
}

func (m *MockDepositRepository) GetByTxID(ctx context.Context, txID string) (*domain.DepositRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.deposits[txID]; ok {
		return d, nil
	}
	return nil, domain.ErrDepositNotFound
}

func (m *MockDepositRepository) ListByAddress(ctx context.Context, address string, limit, offset int) ([]*domain.DepositRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DepositRecord
	for _, d := range m.deposits {
		if d.Address == address {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot > out[j].Slot })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

// Count returns the number of stored deposits.
func (m *MockDepositRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deposits)
}

// MockBalanceRepository is an in-memory BalanceRepository.
type MockBalanceRepository struct {
	mu       sync.RWMutex
	balances map[string]*domain.BalanceEntry

	CreditFunc func(ctx context.Context, tx usecase.Transaction, memberID, assetID int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error)
}

func NewMockBalanceRepository() *MockBalanceRepository {
	return &MockBalanceRepository{balances: make(map[string]*domain.BalanceEntry)}
}

func balanceKey(memberID, assetID int64) string {
	return fmt.Sprintf("%d:%d", memberID, assetID)
}

func (m *MockBalanceRepository) Credit(ctx context.Context, tx usecase.Transaction, memberID, assetID int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, tx, memberID, assetID, amount, at)
	}
	m.mu.RLock()
	current := decimal.Zero
	if e, ok := m.balances[balanceKey(memberID, assetID)]; ok {
		current = e.Balance
	}
	m.mu.RUnlock()

	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		e, ok := m.balances[balanceKey(memberID, assetID)]
		if !ok {
			e = &domain.BalanceEntry{MemberID: memberID, AssetID: assetID, Balance: decimal.Zero}
			m.balances[balanceKey(memberID, assetID)] = e
		}
		e.Balance = e.Balance.Add(amount)
		e.UpdatedAt = at
	})
	return current.Add(amount), nil
}

func (m *MockBalanceRepository) Get(ctx context.Context, memberID, assetID int64) (*domain.BalanceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.balances[balanceKey(memberID, assetID)]; ok {
		c := *e
		return &c, nil
	}
	return nil, domain.ErrBalanceNotFound
}

// MockLedgerRepository is a LedgerRepository returning fixed totals.
type MockLedgerRepository struct {
	TotalsFunc func(ctx context.Context) ([]usecase.LedgerTotal, error)
}

func (m *MockLedgerRepository) Totals(ctx context.Context) ([]usecase.LedgerTotal, error) {
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx)
	}
	return nil, nil
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	MarkPublishedFunc func(ctx context.Context, id string, publishedAt time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	stage(tx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.events = append(m.events, event)
	})
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int, olderThan time.Time) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && e.CreatedAt.Before(olderThan) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			t := publishedAt
			e.PublishedAt = &t
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var deleted int64
	for _, e := range m.events {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

// Events returns a snapshot of stored events.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// MockAnomalyRepository is an in-memory AnomalyRepository.
type MockAnomalyRepository struct {
	mu        sync.RWMutex
	anomalies []*domain.ScanAnomaly
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{}
}

func (m *MockAnomalyRepository) Create(ctx context.Context, anomaly *domain.ScanAnomaly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies = append(m.anomalies, anomaly)
	return nil
}

func (m *MockAnomalyRepository) ListByAddress(ctx context.Context, address string, limit int) ([]*domain.ScanAnomaly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ScanAnomaly
	for _, a := range m.anomalies {
		if a.Address == address && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
// Writes staged through OnCommit are applied only when Commit succeeds.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	mu      sync.Mutex
	pending []func()
	done    bool
}

// OnCommit stages fn until the transaction commits.
func (m *MockTransaction) OnCommit(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	for _, fn := range m.pending {
		fn()
	}
	m.pending = nil
	m.done = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.done = true
	return nil
}

// MockRetrier runs the operation exactly once.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}
	return operation()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss: %s", key)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockIdempotencyStore is an in-memory IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	m.data[key] = value
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockIdempotencyStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockAccountLocker is an in-memory AccountLocker.
type MockAccountLocker struct {
	mu   sync.Mutex
	held map[string]bool

	AcquireFunc func(ctx context.Context, address string, ttl time.Duration) (func(context.Context) error, error)
}

func NewMockAccountLocker() *MockAccountLocker {
	return &MockAccountLocker{held: make(map[string]bool)}
}

func (m *MockAccountLocker) Acquire(ctx context.Context, address string, ttl time.Duration) (func(context.Context) error, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, address, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[address] {
		return nil, domain.ErrAccountBusy
	}
	m.held[address] = true
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, address)
		return nil
	}, nil
}

// MockAlertSink records every alert line.
type MockAlertSink struct {
	mu       sync.Mutex
	Messages []string

	SendFunc func(ctx context.Context, text string) error
}

func (m *MockAlertSink) Send(ctx context.Context, text string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, text)
	return nil
}
