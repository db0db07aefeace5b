package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/postgres"
	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
)

// Addresses used across integration tests.
const (
	WatchedAddress = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	SenderAddress  = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool    *pgxpool.Pool
	Queries *generated.Queries
	t       *testing.T
}

// NewTestDB connects to DATABASE_URL and applies the embedded migrations.
// The test is skipped when DATABASE_URL is unset or -short is given.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	if err := postgres.RunMigrations(dbURL, zerolog.Nop()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 10, 1)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db := &TestDB{
		Pool:    pool,
		Queries: generated.New(pool),
		t:       t,
	}
	db.TruncateAll(ctx)
	t.Cleanup(db.Cleanup)

	return db
}

// Cleanup closes the database connection.
func (db *TestDB) Cleanup() {
	db.Pool.Close()
}

// TruncateAll removes all data except the seeded assets.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `TRUNCATE scan_anomalies, outbox_events, balances, deposits, checkpoints, deposit_wallets`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateWallet provisions an active watched address for the native asset.
func (db *TestDB) CreateWallet(ctx context.Context, address string, memberID int64) *domain.WatchedAccount {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO deposit_wallets (address, member_id, asset_id, status) VALUES ($1, $2, $3, 'active')`,
		address, memberID, domain.AssetIDSOL)
	if err != nil {
		db.t.Fatalf("failed to create wallet: %v", err)
	}

	return &domain.WatchedAccount{
		Address:  address,
		MemberID: memberID,
		Asset:    domain.NativeAsset(),
		Status:   domain.WalletStatusActive,
	}
}

// CountRows returns the number of rows in table.
func (db *TestDB) CountRows(ctx context.Context, table string) int {
	db.t.Helper()

	var n int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		db.t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
