package solana

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/iho/godeposit/internal/domain"
)

type (
	// balanceResponse is the result of getBalance.
	balanceResponse struct {
		Value uint64 `json:"value"`
	}

	// uiTokenAmount carries the raw integer amount as a decimal string.
	uiTokenAmount struct {
		Amount   string `json:"amount"`
		Decimals int32  `json:"decimals"`
	}

	// tokenAccountBalanceResponse is the result of getTokenAccountBalance.
	tokenAccountBalanceResponse struct {
		Value uiTokenAmount `json:"value"`
	}

	// tokenAccountsResponse is the result of getTokenAccountsByOwner with jsonParsed encoding.
	tokenAccountsResponse struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string        `json:"mint"`
							Owner       string        `json:"owner"`
							TokenAmount uiTokenAmount `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}

	// signatureInfo is one element of getSignaturesForAddress.
	signatureInfo struct {
		Signature string          `json:"signature"`
		Slot      uint64          `json:"slot"`
		Err       json.RawMessage `json:"err"`
		BlockTime *int64          `json:"blockTime"`
	}

	tokenBalance struct {
		AccountIndex  int           `json:"accountIndex"`
		Mint          string        `json:"mint"`
		Owner         string        `json:"owner"`
		UITokenAmount uiTokenAmount `json:"uiTokenAmount"`
	}

	// accountKey is a jsonParsed account key. Keys loaded from lookup tables are
	// already merged into the list with source "lookupTable".
	accountKey struct {
		Pubkey string `json:"pubkey"`
		Signer bool   `json:"signer"`
		Source string `json:"source"`
	}

	transactionMeta struct {
		Err               json.RawMessage `json:"err"`
		PreBalances       []uint64        `json:"preBalances"`
		PostBalances      []uint64        `json:"postBalances"`
		PreTokenBalances  []tokenBalance  `json:"preTokenBalances"`
		PostTokenBalances []tokenBalance  `json:"postTokenBalances"`
	}

	// transactionResponse is the result of getTransaction with jsonParsed encoding.
	transactionResponse struct {
		Slot        uint64 `json:"slot"`
		BlockTime   *int64 `json:"blockTime"`
		Transaction struct {
			Signatures []string `json:"signatures"`
			Message    struct {
				AccountKeys []accountKey `json:"accountKeys"`
			} `json:"message"`
		} `json:"transaction"`
		Meta *transactionMeta `json:"meta"`
	}
)

// isErr reports whether a JSON err field is set. The RPC sends null on success.
func isErr(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func unixTime(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

func (s signatureInfo) toHistoryEntry() domain.HistoryEntry {
	return domain.HistoryEntry{
		TxID:      s.Signature,
		Slot:      s.Slot,
		Failed:    isErr(s.Err),
		BlockTime: unixTime(s.BlockTime),
	}
}

func (a uiTokenAmount) minor() (uint64, error) {
	v, err := strconv.ParseUint(a.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token amount %q: %w", a.Amount, err)
	}
	return v, nil
}

func toTokenBalances(in []tokenBalance) ([]domain.TokenBalance, error) {
	out := make([]domain.TokenBalance, 0, len(in))
	for _, b := range in {
		amount, err := b.UITokenAmount.minor()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        b.Owner,
			Amount:       amount,
		})
	}
	return out, nil
}

// toRawTransaction flattens the jsonParsed response. A missing meta yields HasMeta=false
// and is left to the extractor to report.
func (r transactionResponse) toRawTransaction(txID string) (*domain.RawTransaction, error) {
	keys := make([]string, len(r.Transaction.Message.AccountKeys))
	for i, k := range r.Transaction.Message.AccountKeys {
		keys[i] = k.Pubkey
	}

	tx := &domain.RawTransaction{
		TxID:        txID,
		Slot:        r.Slot,
		BlockTime:   unixTime(r.BlockTime),
		AccountKeys: keys,
	}
	if r.Meta == nil {
		return tx, nil
	}

	pre, err := toTokenBalances(r.Meta.PreTokenBalances)
	if err != nil {
		return nil, err
	}
	post, err := toTokenBalances(r.Meta.PostTokenBalances)
	if err != nil {
		return nil, err
	}

	tx.HasMeta = true
	tx.Failed = isErr(r.Meta.Err)
	tx.PreBalances = r.Meta.PreBalances
	tx.PostBalances = r.Meta.PostBalances
	tx.PreTokenBalances = pre
	tx.PostTokenBalances = post
	return tx, nil
}
