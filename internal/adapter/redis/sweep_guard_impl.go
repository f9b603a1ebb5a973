package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweptDomainPrefix = "swept:domain:"

// SweepGuardImpl provides a concrete implementation for the SweepGuard
// interface using expiring Redis keys.
type SweepGuardImpl struct {
	client *redis.Client
}

// NewSweepGuard creates a new instance of SweepGuardImpl.
func NewSweepGuard(client *redis.Client) *SweepGuardImpl {
	return &SweepGuardImpl{client: client}
}

func (g *SweepGuardImpl) key(domainID int64) string {
	return fmt.Sprintf("%s%d", sweptDomainPrefix, domainID)
}

// MarkSwept records a sweep of the domain with an expiry.
func (g *SweepGuardImpl) MarkSwept(ctx context.Context, domainID int64, ttl time.Duration) error {
	return g.client.SetEx(ctx, g.key(domainID), "1", ttl).Err()
}

// RecentlySwept checks whether the domain's marker is still live.
func (g *SweepGuardImpl) RecentlySwept(ctx context.Context, domainID int64) (bool, error) {
	val, err := g.client.Exists(ctx, g.key(domainID)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}
