package usecase_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
	"github.com/iho/godeposit/internal/usecase/mocks"
)

const (
	watchedAddr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	senderAddr  = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	otherAddr   = "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj"
)

func solAccount(address string, memberID int64) *domain.WatchedAccount {
	return &domain.WatchedAccount{
		Address:  address,
		MemberID: memberID,
		Asset:    domain.NativeAsset(),
		Status:   domain.WalletStatusActive,
	}
}

// fakeChain serves a fixed history, oldest first, the way the RPC pages it.
type fakeChain struct {
	mu       sync.Mutex
	entries  []domain.HistoryEntry
	txs      map[string]*domain.RawTransaction
	txErrs   map[string]error
	histErr  error
	txCalls  map[string]int
	balances map[string]uint64
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		txs:      make(map[string]*domain.RawTransaction),
		txErrs:   make(map[string]error),
		txCalls:  make(map[string]int),
		balances: make(map[string]uint64),
	}
}

// addDeposit appends a native transfer of amount lamports from senderAddr to watched.
func (c *fakeChain) addDeposit(txID string, slot, amount uint64, watched string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, domain.HistoryEntry{TxID: txID, Slot: slot})
	c.txs[txID] = &domain.RawTransaction{
		TxID:         txID,
		Slot:         slot,
		AccountKeys:  []string{senderAddr, watched},
		PreBalances:  []uint64{10 * amount, 1_000},
		PostBalances: []uint64{9 * amount, 1_000 + amount},
		HasMeta:      true,
	}
}

func (c *fakeChain) addTx(entry domain.HistoryEntry, tx *domain.RawTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	if tx != nil {
		c.txs[entry.TxID] = tx
	}
}

func (c *fakeChain) failTx(txID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.txErrs, txID)
		return
	}
	c.txErrs[txID] = err
}

func (c *fakeChain) Balance(_ context.Context, account *domain.WatchedAccount) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account.Address], nil
}

func (c *fakeChain) HistorySince(_ context.Context, _ string, after, before string, limit int) ([]domain.HistoryEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.histErr != nil {
		return nil, c.histErr
	}

	newestFirst := slices.Clone(c.entries)
	slices.Reverse(newestFirst)

	started := before == ""
	var page []domain.HistoryEntry
	for _, e := range newestFirst {
		if !started {
			started = e.TxID == before
			continue
		}
		if e.TxID == after || len(page) == limit {
			break
		}
		page = append(page, e)
	}
	return page, nil
}

func (c *fakeChain) Transaction(_ context.Context, txID string) (*domain.RawTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txCalls[txID]++
	if err, ok := c.txErrs[txID]; ok {
		return nil, err
	}
	tx, ok := c.txs[txID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

// fakePublisher records published notifications and fails while err is set.
type fakePublisher struct {
	mu        sync.Mutex
	published []*domain.DepositNotification
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, n *domain.DepositNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, n)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// failingDeposits fails Create for one tx id until cleared.
type failingDeposits struct {
	usecase.DepositRepository
	mu       sync.Mutex
	failTxID string
}

func (f *failingDeposits) Create(ctx context.Context, tx usecase.Transaction, d *domain.DepositRecord) (bool, error) {
	f.mu.Lock()
	fail := f.failTxID != "" && d.TxID == f.failTxID
	f.mu.Unlock()
	if fail {
		return false, errors.New("connection reset by peer")
	}
	return f.DepositRepository.Create(ctx, tx, d)
}

func (f *failingDeposits) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failTxID = ""
}

type harness struct {
	accounts    *mocks.MockWatchedAccountRepository
	checkpoints *mocks.MockCheckpointRepository
	deposits    *mocks.MockDepositRepository
	failing     *failingDeposits
	balances    *mocks.MockBalanceRepository
	outbox      *mocks.MockOutboxRepository
	anomalies   *mocks.MockAnomalyRepository
	publisher   *fakePublisher
	chain       usecase.ChainReader
	batchSize   int
}

func newHarness(t *testing.T, chain usecase.ChainReader, batchSize int) *harness {
	t.Helper()

	deposits := mocks.NewMockDepositRepository()
	return &harness{
		accounts:    mocks.NewMockWatchedAccountRepository(solAccount(watchedAddr, 7)),
		checkpoints: mocks.NewMockCheckpointRepository(),
		deposits:    deposits,
		failing:     &failingDeposits{DepositRepository: deposits},
		balances:    mocks.NewMockBalanceRepository(),
		outbox:      mocks.NewMockOutboxRepository(),
		anomalies:   mocks.NewMockAnomalyRepository(),
		publisher:   &fakePublisher{},
		chain:       chain,
		batchSize:   batchSize,
	}
}

func (h *harness) depositUseCase() *usecase.DepositUseCase {
	return usecase.NewDepositUseCase(
		mocks.NewMockTransactionManager(),
		&mocks.MockRetrier{},
		h.failing,
		h.balances,
		h.outbox,
		mocks.NewMockIDGenerator(),
	)
}

func (h *harness) reconciler() *usecase.ReconciliationUseCase {
	logger := zerolog.Nop()
	return usecase.NewReconciliationUseCase(usecase.ReconciliationConfig{
		AccountRepo:    h.accounts,
		CheckpointRepo: h.checkpoints,
		AnomalyRepo:    h.anomalies,
		Chain:          h.chain,
		Deposits:       h.depositUseCase(),
		Notifier:       usecase.NewNotifier(h.publisher, h.outbox, nil, logger),
		Logger:         logger,
		BatchSize:      h.batchSize,
	})
}

func (h *harness) balance(t *testing.T, memberID int64) decimal.Decimal {
	t.Helper()
	entry, err := h.balances.Get(context.Background(), memberID, domain.AssetIDSOL)
	if errors.Is(err, domain.ErrBalanceNotFound) {
		return decimal.Zero
	}
	require.NoError(t, err)
	return entry.Balance
}
