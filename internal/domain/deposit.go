package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownCounterparty is recorded when the sender cannot be determined.
const UnknownCounterparty = "unknown"

// DepositRecord is one confirmed inbound transfer. TxID is the sole dedup key.
type DepositRecord struct {
	CreatedAt    time.Time
	ConfirmedAt  time.Time
	ID           string
	TxID         string
	Address      string
	Counterparty string
	Amount       decimal.Decimal
	MemberID     int64
	AssetID      int64
	Slot         uint64
}

// BalanceEntry is the running total per (member, asset).
type BalanceEntry struct {
	UpdatedAt time.Time
	Balance   decimal.Decimal
	MemberID  int64
	AssetID   int64
}

// DepositNotification is the message published for every newly recorded deposit.
type DepositNotification struct {
	MemberID       int64     `json:"member_id"`
	AssetID        int64     `json:"asset_id"`
	Asset          string    `json:"asset"`
	Address        string    `json:"address"`
	Amount         string    `json:"amount"`
	TxID           string    `json:"tx_id"`
	Counterparty   string    `json:"counterparty"`
	LedgerPosition uint64    `json:"ledger_position"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
	DetectedAt     time.Time `json:"detected_at"`
}

// NewDepositNotification builds the notification for a stored deposit.
func NewDepositNotification(d *DepositRecord, asset Asset, detectedAt time.Time) *DepositNotification {
	return &DepositNotification{
		MemberID:       d.MemberID,
		AssetID:        d.AssetID,
		Asset:          asset.Symbol,
		Address:        d.Address,
		Amount:         asset.Format(d.Amount),
		TxID:           d.TxID,
		Counterparty:   d.Counterparty,
		LedgerPosition: d.Slot,
		ConfirmedAt:    d.ConfirmedAt,
		DetectedAt:     detectedAt,
	}
}
