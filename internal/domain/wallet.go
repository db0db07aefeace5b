package domain

import "time"

// WalletStatus is the monitoring status of a deposit address.
type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusInactive WalletStatus = "inactive"
)

// WatchedAccount is a custodial deposit address under monitoring.
// It is provisioned outside this service and is read-only here.
type WatchedAccount struct {
	Address      string
	TokenAccount string // associated token account, SPL assets only
	MemberID     int64
	Asset        Asset
	Status       WalletStatus
	CreatedAt    time.Time
}

// IsActive reports whether the account should be reconciled.
func (w *WatchedAccount) IsActive() bool {
	return w.Status == WalletStatusActive
}

// HistoryAddress is the address whose transaction history carries this account's deposits.
func (w *WatchedAccount) HistoryAddress() string {
	if !w.Asset.IsNative() && w.TokenAccount != "" {
		return w.TokenAccount
	}
	return w.Address
}
