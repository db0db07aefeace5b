// Package solana reads balances and address history from a Solana JSON-RPC node.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iho/godeposit/internal/domain"
	"github.com/iho/godeposit/internal/infrastructure/jsonrpc"
	"github.com/iho/godeposit/internal/usecase"
)

// Provider error codes that clear up on their own.
const (
	codeBlockNotAvailable  = -32004
	codeNodeUnhealthy      = -32005
	codeSlotSkipped        = -32007
	codeTooManyRequests    = 429
	codeLongTermStorage    = -32009
	maxSignaturesPageLimit = 1000
)

var errDecodeResult = errors.New("decode result")

// CallObserver is told about every RPC round trip.
type CallObserver interface {
	ChainCall(method string, elapsed time.Duration, err error)
}

// Config tunes the client.
type Config struct {
	Commitment    string // confirmed | finalized
	RetryAttempts uint
	RetryDelay    time.Duration
	RateLimit     float64 // requests per second, 0 disables limiting
	RateBurst     int
}

// Client implements usecase.ChainReader.
type Client struct {
	conn     jsonrpc.Client
	limiter  *rate.Limiter
	observer CallObserver
	logger   zerolog.Logger
	cfg      Config
}

var _ usecase.ChainReader = (*Client)(nil)

// NewClient wraps conn. observer may be nil.
func NewClient(conn jsonrpc.Client, cfg Config, observer CallObserver, logger zerolog.Logger) *Client {
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		conn:     conn,
		limiter:  limiter,
		observer: observer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Balance returns lamports for native accounts and raw token units for SPL accounts.
func (c *Client) Balance(ctx context.Context, account *domain.WatchedAccount) (uint64, error) {
	if account.Asset.IsNative() {
		var res balanceResponse
		if err := c.call(ctx, &res, "getBalance", account.Address, c.commitment()); err != nil {
			return 0, err
		}
		return res.Value, nil
	}

	if account.TokenAccount != "" {
		var res tokenAccountBalanceResponse
		if err := c.call(ctx, &res, "getTokenAccountBalance", account.TokenAccount, c.commitment()); err != nil {
			return 0, err
		}
		amount, err := res.Value.minor()
		if err != nil {
			return 0, domain.Fatal(err)
		}
		return amount, nil
	}

	return c.ownerTokenBalance(ctx, account.Address, account.Asset.Mint)
}

// ownerTokenBalance sums every token account of owner for mint.
func (c *Client) ownerTokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	var res tokenAccountsResponse
	err := c.call(ctx, &res, "getTokenAccountsByOwner",
		owner,
		map[string]any{"mint": mint},
		map[string]any{"encoding": "jsonParsed", "commitment": c.cfg.Commitment},
	)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, acc := range res.Value {
		amount, err := acc.Account.Data.Parsed.Info.TokenAmount.minor()
		if err != nil {
			return 0, domain.Fatal(err)
		}
		total += amount
	}
	return total, nil
}

// HistorySince returns at most limit signatures of address, newest first, strictly
// newer than afterTxID and strictly older than beforeTxID.
func (c *Client) HistorySince(ctx context.Context, address, afterTxID, beforeTxID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > maxSignaturesPageLimit {
		limit = maxSignaturesPageLimit
	}

	opts := map[string]any{
		"limit":      limit,
		"commitment": c.cfg.Commitment,
	}
	if afterTxID != "" {
		opts["until"] = afterTxID
	}
	if beforeTxID != "" {
		opts["before"] = beforeTxID
	}

	var res []signatureInfo
	if err := c.call(ctx, &res, "getSignaturesForAddress", address, opts); err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, len(res))
	for i, s := range res {
		entries[i] = s.toHistoryEntry()
	}
	return entries, nil
}

// Transaction fetches one transaction with parsed balances. A null result is
// domain.ErrTransactionNotFound; a record that does not decode is domain.ErrMalformedTransaction.
func (c *Client) Transaction(ctx context.Context, txID string) (*domain.RawTransaction, error) {
	var res *transactionResponse
	err := c.call(ctx, &res, "getTransaction", txID, map[string]any{
		"encoding":                       "jsonParsed",
		"commitment":                     c.cfg.Commitment,
		"maxSupportedTransactionVersion": 0,
	})
	if errors.Is(err, errDecodeResult) {
		return nil, fmt.Errorf("%w: transaction %s: %v", domain.ErrMalformedTransaction, txID, err)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domain.ErrTransactionNotFound
	}

	tx, err := res.toRawTransaction(txID)
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction %s: %v", domain.ErrMalformedTransaction, txID, err)
	}
	return tx, nil
}

func (c *Client) commitment() map[string]any {
	return map[string]any{"commitment": c.cfg.Commitment}
}

// call runs one rate-limited RPC with retries on provider-side transient codes and
// decodes the result into out. Transport failures are transient, decode failures fatal.
func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	var raw json.RawMessage

	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			started := time.Now()
			res, err := c.conn.Fetch(ctx, method, params...)
			if c.observer != nil {
				c.observer.ChainCall(method, time.Since(started), err)
			}
			if err != nil {
				return err
			}
			raw = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.RetryAttempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug().Err(err).Str("method", method).Uint("attempt", n+1).Msg("retrying rpc call")
		}),
	)
	if err != nil {
		return domain.Transient(fmt.Errorf("%s: %w", method, err))
	}

	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		// leave out at its zero value; callers decide what null means
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.Fatal(fmt.Errorf("%s: %w: %w", method, errDecodeResult, err))
	}
	return nil
}

func isRetryable(err error) bool {
	var perr *jsonrpc.ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	switch perr.Code {
	case codeBlockNotAvailable, codeNodeUnhealthy, codeSlotSkipped, codeTooManyRequests, codeLongTermStorage:
		return true
	}
	return false
}
