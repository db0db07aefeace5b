package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/usecase"
)

const addr = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

type fakeServices struct {
	reconciled  []string
	report      *usecase.BatchReport
	reportErr   error
	checkpoint  *domain.Checkpoint
	invalidated bool
	balance     *usecase.BalanceReport
	deposits    []*domain.DepositRecord
	limit       int
	offset      int
	mismatches  []usecase.LedgerTotal
	ledgerErr   error
	consumed    bool
	closed      bool
}

func (f *fakeServices) ReconcileOne(_ context.Context, address string) (*usecase.ReconcileResult, error) {
	f.reconciled = append(f.reconciled, address)
	return &usecase.ReconcileResult{Address: address, NewDeposits: 2, Scanned: 3}, nil
}

func (f *fakeServices) ReconcileAll(context.Context) (*usecase.BatchReport, error) {
	return f.report, f.reportErr
}

func (f *fakeServices) GetCheckpoint(context.Context, string) (*domain.Checkpoint, error) {
	if f.checkpoint == nil {
		return nil, domain.ErrCheckpointNotFound
	}
	return f.checkpoint, nil
}

func (f *fakeServices) GetBalances(context.Context, string) (*usecase.BalanceReport, error) {
	return f.balance, nil
}

func (f *fakeServices) InvalidateBalance(context.Context, string) error {
	f.invalidated = true
	return nil
}

func (f *fakeServices) ListDeposits(_ context.Context, _ string, limit, offset int) ([]*domain.DepositRecord, error) {
	f.limit, f.offset = limit, offset
	return f.deposits, nil
}

func (f *fakeServices) CheckConsistency(context.Context) ([]usecase.LedgerTotal, error) {
	return f.mismatches, f.ledgerErr
}

func (f *fakeServices) Consume(context.Context) error {
	f.consumed = true
	return nil
}

func (f *fakeServices) Close() error {
	f.closed = true
	return nil
}

type fakeMigrator struct{ up, down int }

func (m *fakeMigrator) Up() error   { m.up++; return nil }
func (m *fakeMigrator) Down() error { m.down++; return nil }

func execute(t *testing.T, svc *fakeServices, mig *fakeMigrator, args ...string) (string, error) {
	t.Helper()

	open := func(context.Context) (Services, error) { return svc, nil }
	migrator := func() (Migrator, error) { return mig, nil }

	cmd := newRootCmd(open, migrator)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReconcileCmd(t *testing.T) {
	svc := &fakeServices{}
	out, err := execute(t, svc, nil, "reconcile", addr)
	require.NoError(t, err)

	assert.Equal(t, []string{addr}, svc.reconciled)
	assert.Contains(t, out, `"NewDeposits": 2`)
	assert.True(t, svc.closed)
}

func TestReconcileCmdRequiresAddress(t *testing.T) {
	_, err := execute(t, &fakeServices{}, nil, "reconcile")
	assert.Error(t, err)
}

func TestReconcileAllCmdPrintsFailures(t *testing.T) {
	svc := &fakeServices{
		report: &usecase.BatchReport{
			Accounts:  2,
			Succeeded: 1,
			Failures:  []usecase.AccountFailure{{Address: "bad", Err: errors.New("rpc timeout")}},
		},
	}

	out, err := execute(t, svc, nil, "reconcile-all")
	require.NoError(t, err)
	assert.Contains(t, out, "accounts=2 succeeded=1 skipped=0 failed=1")
	assert.Contains(t, out, "bad: rpc timeout")
}

func TestCheckpointCmd(t *testing.T) {
	out, err := execute(t, &fakeServices{}, nil, "checkpoint", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "never scanned")

	svc := &fakeServices{checkpoint: &domain.Checkpoint{Address: addr, Slot: 42, Signature: "sig"}}
	out, err = execute(t, svc, nil, "checkpoint", addr)
	require.NoError(t, err)
	assert.Contains(t, out, `"Slot": 42`)
}

func TestBalanceCmdRefresh(t *testing.T) {
	svc := &fakeServices{balance: &usecase.BalanceReport{Address: addr, Asset: "SOL", OnChain: "1.5", Ledger: "1.5"}}

	out, err := execute(t, svc, nil, "balance", addr, "--refresh")
	require.NoError(t, err)
	assert.True(t, svc.invalidated)
	assert.Contains(t, out, `"OnChain": "1.5"`)
}

func TestDepositsCmd(t *testing.T) {
	svc := &fakeServices{deposits: []*domain.DepositRecord{{
		TxID:         "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		Slot:         42,
		Amount:       decimal.RequireFromString("0.5"),
		Counterparty: "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		ConfirmedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}}}

	out, err := execute(t, svc, nil, "deposits", addr, "--limit", "5", "--offset", "10")
	require.NoError(t, err)

	assert.Equal(t, 5, svc.limit)
	assert.Equal(t, 10, svc.offset)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "5VERv8NMvzbJM...")
	assert.Contains(t, lines[1], "0.5")
	assert.Contains(t, lines[1], "2024-05-01T00:00:00Z")
}

func TestConsistencyCmd(t *testing.T) {
	out, err := execute(t, &fakeServices{}, nil, "consistency")
	require.NoError(t, err)
	assert.Contains(t, out, "PASSED")

	svc := &fakeServices{
		mismatches: []usecase.LedgerTotal{{MemberID: 7, AssetID: 1, Deposited: decimal.NewFromInt(2), Balance: decimal.NewFromInt(1)}},
		ledgerErr:  usecase.ErrInconsistentLedger,
	}
	out, err = execute(t, svc, nil, "consistency")
	assert.ErrorIs(t, err, usecase.ErrInconsistentLedger)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "member=7 asset=1 deposited=2 balance=1")
}

func TestConsumeCmd(t *testing.T) {
	svc := &fakeServices{}
	_, err := execute(t, svc, nil, "consume")
	require.NoError(t, err)
	assert.True(t, svc.consumed)
}

func TestMigrateCmd(t *testing.T) {
	mig := &fakeMigrator{}

	_, err := execute(t, nil, mig, "migrate", "up")
	require.NoError(t, err)
	_, err = execute(t, nil, mig, "migrate", "down")
	require.NoError(t, err)

	assert.Equal(t, 1, mig.up)
	assert.Equal(t, 1, mig.down)
}

func TestOpenErrorIsReturned(t *testing.T) {
	cmd := newRootCmd(func(context.Context) (Services, error) {
		return nil, errors.New("invalid configuration")
	}, nil)
	cmd.SetArgs([]string{"reconcile-all"})
	cmd.SetOut(&bytes.Buffer{})

	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "invalid configuration")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("longerstring", 6))
}
