package repository

import (
	"context"
	"time"
)

// SweepGuard is a soft, expiring marker for domains swept recently. It only
// throttles the scheduled path; correctness of concurrent sweeps rests on the
// catalog's claim semantics, never on this guard.
type SweepGuard interface {
	// MarkSwept records that a domain was swept, expiring after ttl.
	MarkSwept(ctx context.Context, domainID int64, ttl time.Duration) error
	// RecentlySwept checks whether a domain's marker is still live.
	RecentlySwept(ctx context.Context, domainID int64) (bool, error)
}
