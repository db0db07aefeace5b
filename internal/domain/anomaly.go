package domain

import "time"

// Anomaly reasons
const (
	AnomalyMissingMeta      = "missing_meta"
	AnomalyMalformedBalance = "malformed_balances"
	AnomalyNotFound         = "not_found"
	AnomalyUndecodable      = "undecodable"
)

// ScanAnomaly is a transaction the scanner skipped because its shape was unexpected.
type ScanAnomaly struct {
	ID        string
	TxID      string
	Address   string
	Reason    string
	Detail    string
	Slot      uint64
	CreatedAt time.Time
}
