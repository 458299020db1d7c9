package domain

import "time"

// RateLimitState is the process-wide view of the transformation service
// quota. One instance exists, owned by the gateway; callers only ever see
// copies. Counters are pointers because the provider does not always report
// them.
type RateLimitState struct {
	IsExceeded bool
	ResetAt    *time.Time
	LastError  string
	Remaining  *int
	Limit      *int
}
