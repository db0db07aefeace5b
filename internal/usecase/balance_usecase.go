package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/iho/godeposit/internal/domain"
)

// BalanceUseCase reports on-chain and ledger balances of a watched address.
type BalanceUseCase struct {
	accountRepo WatchedAccountRepository
	chain       ChainReader
	deposits    *DepositUseCase
	cache       Cache
	cacheTTL    time.Duration
}

// NewBalanceUseCase creates a new BalanceUseCase. cache may be nil.
func NewBalanceUseCase(
	accountRepo WatchedAccountRepository,
	chain ChainReader,
	deposits *DepositUseCase,
	cache Cache,
	cacheTTL time.Duration,
) *BalanceUseCase {
	return &BalanceUseCase{
		accountRepo: accountRepo,
		chain:       chain,
		deposits:    deposits,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// BalanceReport pairs the chain balance with the ledger balance, both at asset precision.
type BalanceReport struct {
	Address  string
	Asset    string
	OnChain  string
	Ledger   string
	MemberID int64
	Cached   bool
}

// GetBalances returns the balances of a watched address.
func (uc *BalanceUseCase) GetBalances(ctx context.Context, address string) (*BalanceReport, error) {
	if err := domain.ValidateAddress(address); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	minor, cached, err := uc.chainBalance(ctx, account)
	if err != nil {
		return nil, err
	}

	entry, err := uc.deposits.GetBalance(ctx, account.MemberID, account.Asset.ID)
	if err != nil {
		return nil, err
	}

	return &BalanceReport{
		Address:  address,
		Asset:    account.Asset.Symbol,
		OnChain:  account.Asset.Format(account.Asset.FromMinor(minor)),
		Ledger:   account.Asset.Format(entry.Balance),
		MemberID: account.MemberID,
		Cached:   cached,
	}, nil
}

func (uc *BalanceUseCase) chainBalance(ctx context.Context, account *domain.WatchedAccount) (uint64, bool, error) {
	key := balanceCacheKey(account)

	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, key); err == nil {
			if v, err := strconv.ParseUint(string(data), 10, 64); err == nil {
				return v, true, nil
			}
		}
	}

	minor, err := uc.chain.Balance(ctx, account)
	if err != nil {
		return 0, false, domain.Transient(fmt.Errorf("fetch balance of %s: %w", account.Address, err))
	}

	if uc.cache != nil && uc.cacheTTL > 0 {
		// cache write failures only cost a round trip next time
		_ = uc.cache.Set(ctx, key, []byte(strconv.FormatUint(minor, 10)), uc.cacheTTL)
	}

	return minor, false, nil
}

// InvalidateBalance drops the cached chain balance of an address.
func (uc *BalanceUseCase) InvalidateBalance(ctx context.Context, address string) error {
	account, err := uc.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return err
	}

	if uc.cache == nil {
		return nil
	}

	return uc.cache.Delete(ctx, balanceCacheKey(account))
}

func balanceCacheKey(account *domain.WatchedAccount) string {
	return fmt.Sprintf("balance:%s:%d", account.Address, account.Asset.ID)
}
