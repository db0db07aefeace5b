package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultScanBatchSize bounds one history round trip
	DefaultScanBatchSize = 20

	// DefaultLockTTL is how long an account stays locked by one run
	DefaultLockTTL = 5 * time.Minute

	// ConsumerKeyTTL is how long a processed tx id is remembered by the consumer
	ConsumerKeyTTL = 24 * time.Hour

	// RecentNotifications is how many processed notifications the consumer keeps
	RecentNotifications = 100

	// Reconcile outcomes reported to the Observer
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
	OutcomeBusy      = "busy"
)
