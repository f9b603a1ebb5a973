package repository

import "context"

// ObjectStore defines the contract for persisting asset bytes durably.
type ObjectStore interface {
	// Store downloads the asset at srcURL and streams it into the bucket under
	// key. The key is deterministic per asset, so a retry overwrites rather
	// than duplicates.
	Store(ctx context.Context, srcURL, key string) error
}
