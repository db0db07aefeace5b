package domain

import "fmt"

// ExtractTransfer reports whether address received asset in tx, and how much.
//
// The counterparty is the first other participant whose balance of the same asset
// decreased; this misattributes the sender when value is routed through an intermediary.
// A malformed record yields ErrMalformedTransaction and must be treated as no deposit.
func ExtractTransfer(tx *RawTransaction, address string, asset Asset) (Transfer, bool, error) {
	if tx == nil || !tx.HasMeta {
		return Transfer{}, false, fmt.Errorf("%w: missing meta", ErrMalformedTransaction)
	}

	if tx.Failed {
		return Transfer{}, false, nil
	}

	if asset.IsNative() {
		return extractNative(tx, address)
	}

	return extractToken(tx, address, asset.Mint)
}

func extractNative(tx *RawTransaction, address string) (Transfer, bool, error) {
	n := len(tx.AccountKeys)
	if len(tx.PreBalances) != n || len(tx.PostBalances) != n {
		return Transfer{}, false, fmt.Errorf("%w: %d account keys, %d pre balances, %d post balances",
			ErrMalformedTransaction, n, len(tx.PreBalances), len(tx.PostBalances))
	}

	idx := -1
	for i, key := range tx.AccountKeys {
		if key == address {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Transfer{}, false, nil
	}

	pre, post := tx.PreBalances[idx], tx.PostBalances[idx]
	if post <= pre {
		return Transfer{}, false, nil
	}

	counterparty := UnknownCounterparty
	for i, key := range tx.AccountKeys {
		if i != idx && tx.PreBalances[i] > tx.PostBalances[i] {
			counterparty = key
			break
		}
	}

	return Transfer{Amount: post - pre, Counterparty: counterparty}, true, nil
}

// tokenPosition is the pre/post token balance of one owner for one mint.
type tokenPosition struct {
	owner     string
	pre, post uint64
}

func extractToken(tx *RawTransaction, owner, mint string) (Transfer, bool, error) {
	positions, order, err := tokenPositions(tx, mint)
	if err != nil {
		return Transfer{}, false, err
	}

	watched, ok := positions[owner]
	if !ok || watched.post <= watched.pre {
		return Transfer{}, false, nil
	}

	counterparty := UnknownCounterparty
	for _, o := range order {
		p := positions[o]
		if o != owner && p.pre > p.post {
			counterparty = o
			break
		}
	}

	return Transfer{Amount: watched.post - watched.pre, Counterparty: counterparty}, true, nil
}

// tokenPositions aggregates token balances of mint per owner, keeping first-seen owner order.
// An absent pre (or post) entry means the token account did not exist at that point: zero.
func tokenPositions(tx *RawTransaction, mint string) (map[string]*tokenPosition, []string, error) {
	positions := make(map[string]*tokenPosition)
	var order []string

	get := func(b TokenBalance) (*tokenPosition, error) {
		if b.Owner == "" {
			return nil, fmt.Errorf("%w: token balance at index %d has no owner", ErrMalformedTransaction, b.AccountIndex)
		}
		p, ok := positions[b.Owner]
		if !ok {
			p = &tokenPosition{owner: b.Owner}
			positions[b.Owner] = p
			order = append(order, b.Owner)
		}
		return p, nil
	}

	for _, b := range tx.PreTokenBalances {
		if b.Mint != mint {
			continue
		}
		p, err := get(b)
		if err != nil {
			return nil, nil, err
		}
		p.pre += b.Amount
	}

	for _, b := range tx.PostTokenBalances {
		if b.Mint != mint {
			continue
		}
		p, err := get(b)
		if err != nil {
			return nil, nil, err
		}
		p.post += b.Amount
	}

	return positions, order, nil
}
