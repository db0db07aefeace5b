package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Callers check them with errors.Is after Transient/Fatal wrapping.
var (
	ErrTransient = errors.New("transient failure")
	ErrFatal     = errors.New("fatal failure")
)

var (
	// Watched account errors
	ErrWatchedAccountNotFound = errors.New("watched account not found")
	ErrWatchedAccountInactive = errors.New("watched account is inactive")
	ErrAssetNotFound          = errors.New("asset not found")

	// Checkpoint errors
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// Deposit errors
	ErrDuplicateDeposit = errors.New("deposit already recorded")
	ErrDepositNotFound  = errors.New("deposit not found")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrBalanceNotFound  = errors.New("balance not found")

	// Chain errors
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrMalformedTransaction = errors.New("malformed transaction record")

	// Scheduling errors
	ErrAccountBusy = errors.New("reconciliation already in flight for account")
)

// Transient marks err as retryable by re-invoking the whole run later.
// An error that already carries a failure kind is returned unchanged.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) || errors.Is(err, ErrFatal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Fatal marks err as non-recoverable in-process.
func Fatal(err error) error {
	if err == nil || errors.Is(err, ErrFatal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// IsTransient reports whether err may succeed on a later run.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsFatal reports whether err should be surfaced without retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
