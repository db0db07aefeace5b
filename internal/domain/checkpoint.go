package domain

import "time"

// Checkpoint is the reconciliation cursor of one watched address.
type Checkpoint struct {
	Address   string
	Slot      uint64
	Signature string
	UpdatedAt time.Time
}

// After returns the signature to scan after, or "" to scan from genesis.
func (c *Checkpoint) After() string {
	if c == nil {
		return ""
	}
	return c.Signature
}
