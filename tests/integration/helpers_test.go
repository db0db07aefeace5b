package integration

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/adapter/repository/postgres"
	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
	"github.com/iho/godeposit/tests/testutil"
)

// chain serves a fixed history for one address, oldest first.
type chain struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	txs     map[string]*domain.RawTransaction
}

func newChain() *chain {
	return &chain{txs: make(map[string]*domain.RawTransaction)}
}

func (c *chain) deposit(txID string, slot, lamports uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, domain.HistoryEntry{TxID: txID, Slot: slot})
	c.txs[txID] = &domain.RawTransaction{
		TxID:         txID,
		Slot:         slot,
		AccountKeys:  []string{testutil.SenderAddress, testutil.WatchedAddress},
		PreBalances:  []uint64{10 * lamports, 0},
		PostBalances: []uint64{9 * lamports, lamports},
		HasMeta:      true,
	}
}

func (c *chain) Balance(context.Context, *domain.WatchedAccount) (uint64, error) { return 0, nil }

func (c *chain) HistorySince(_ context.Context, _ string, after, before string, limit int) ([]domain.HistoryEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

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

func (c *chain) Transaction(_ context.Context, txID string) (*domain.RawTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.txs[txID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

type publisher struct {
	mu  sync.Mutex
	txs []string
}

func (p *publisher) Publish(_ context.Context, n *domain.DepositNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, n.TxID)
	return nil
}

func (p *publisher) Close() error { return nil }

type stack struct {
	deposits   *usecase.DepositUseCase
	reconciler *usecase.ReconciliationUseCase
	ledger     *usecase.LedgerUseCase
	outbox     *postgres.OutboxRepository
}

func newStack(db *testutil.TestDB, c usecase.ChainReader, pub usecase.Publisher, batchSize int) *stack {
	logger := zerolog.Nop()
	outbox := postgres.NewOutboxRepository(db.Pool)

	deposits := usecase.NewDepositUseCase(
		postgres.NewTxManager(db.Pool),
		postgres.NewRetrier(logger),
		postgres.NewDepositRepository(db.Pool),
		postgres.NewBalanceRepository(db.Pool),
		outbox,
		postgres.NewULIDGenerator(),
	)

	return &stack{
		deposits: deposits,
		reconciler: usecase.NewReconciliationUseCase(usecase.ReconciliationConfig{
			AccountRepo:    postgres.NewWatchedAccountRepository(db.Pool),
			CheckpointRepo: postgres.NewCheckpointRepository(db.Pool),
			AnomalyRepo:    postgres.NewAnomalyRepository(db.Pool),
			Chain:          c,
			Deposits:       deposits,
			Notifier:       usecase.NewNotifier(pub, outbox, nil, logger),
			Logger:         logger,
			BatchSize:      batchSize,
		}),
		ledger: usecase.NewLedgerUseCase(postgres.NewLedgerRepository(db.Pool)),
		outbox: outbox,
	}
}
