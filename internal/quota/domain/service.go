package domain

import "context"

// Ledger is the quota gate every provider call passes through.
type Ledger interface {
	Used(ctx context.Context) (int64, error)
	Remaining(ctx context.Context) (int64, error)
	// CanSpend reports whether n more calls would fit under the ceiling.
	// It is advisory; TrySpend is the serialization point.
	CanSpend(ctx context.Context, n int64) (bool, error)
	// TrySpend durably reserves n calls. Returns ErrQuotaExceeded when the
	// ceiling would be crossed; any other error means the reservation did
	// not commit and the caller must not make the external call.
	TrySpend(ctx context.Context, n int64) error
	Ceiling() int64
}
