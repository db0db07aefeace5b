package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidTxID    = errors.New("invalid transaction id")
)

// Validation constants
const (
	MinAddressLength = 32
	MaxAddressLength = 44
	MinTxIDLength    = 64
	MaxTxIDLength    = 88
)

// base58 alphabet without 0, O, I, l
var base58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// ValidateAddress validates a base58 account address
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)

	if len(address) < MinAddressLength || len(address) > MaxAddressLength {
		return fmt.Errorf("%w: length %d not in [%d, %d]", ErrInvalidAddress, len(address), MinAddressLength, MaxAddressLength)
	}

	if !base58Regex.MatchString(address) {
		return fmt.Errorf("%w: not base58", ErrInvalidAddress)
	}

	return nil
}

// ValidateTxID validates a base58 transaction signature
func ValidateTxID(txID string) error {
	if len(txID) < MinTxIDLength || len(txID) > MaxTxIDLength || !base58Regex.MatchString(txID) {
		return ErrInvalidTxID
	}

	return nil
}

// ValidateAmount validates a deposit amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
