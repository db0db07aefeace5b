package domain

import "time"

// HistoryEntry is one signature returned by an address history query.
type HistoryEntry struct {
	BlockTime *time.Time
	TxID      string
	Slot      uint64
	Failed    bool
}

// TokenBalance is an SPL token balance snapshot inside a transaction.
type TokenBalance struct {
	Mint         string
	Owner        string
	Amount       uint64 // minor units
	AccountIndex int
}

// RawTransaction is a confirmed transaction with its per-participant balance effects.
// HasMeta is false when the source returned the transaction without execution metadata.
type RawTransaction struct {
	BlockTime         *time.Time
	TxID              string
	AccountKeys       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	Slot              uint64
	HasMeta           bool
	Failed            bool
}

// Transfer is an inbound value movement detected for a watched address.
type Transfer struct {
	Counterparty string
	Amount       uint64 // minor units
}
