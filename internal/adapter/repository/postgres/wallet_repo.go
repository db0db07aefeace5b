package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/postgres/generated"
)

// WatchedAccountRepository implements usecase.WatchedAccountRepository over deposit_wallets.
type WatchedAccountRepository struct {
	queries *generated.Queries
}

// NewWatchedAccountRepository creates a new WatchedAccountRepository.
func NewWatchedAccountRepository(db generated.DBTX) *WatchedAccountRepository {
	return &WatchedAccountRepository{queries: generated.New(db)}
}

// GetByAddress retrieves a deposit wallet with its asset.
func (r *WatchedAccountRepository) GetByAddress(ctx context.Context, address string) (*domain.WatchedAccount, error) {
	row, err := r.queries.GetWalletByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWatchedAccountNotFound
		}

		return nil, err
	}

	return &domain.WatchedAccount{
		Address:      row.Address,
		TokenAccount: row.TokenAccount,
		MemberID:     row.MemberID,
		Asset:        domain.Asset{ID: row.AssetID, Symbol: row.Symbol, Decimals: row.Decimals, Mint: row.Mint},
		Status:       domain.WalletStatus(row.Status),
		CreatedAt:    row.CreatedAt.Time,
	}, nil
}

// ListActive lists active deposit wallets ordered by address.
func (r *WatchedAccountRepository) ListActive(ctx context.Context, limit, offset int) ([]*domain.WatchedAccount, error) {
	rows, err := r.queries.ListActiveWallets(ctx, generated.ListActiveWalletsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.WatchedAccount, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, &domain.WatchedAccount{
			Address:      row.Address,
			TokenAccount: row.TokenAccount,
			MemberID:     row.MemberID,
			Asset:        domain.Asset{ID: row.AssetID, Symbol: row.Symbol, Decimals: row.Decimals, Mint: row.Mint},
			Status:       domain.WalletStatus(row.Status),
			CreatedAt:    row.CreatedAt.Time,
		})
	}

	return accounts, nil
}
