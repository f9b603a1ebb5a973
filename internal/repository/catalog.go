package repository

import (
	"context"
	"time"

	"github.com/user/asset-pipeline/internal/entity"
)

// DomainRepository defines the contract for managing registered domains.
type DomainRepository interface {
	// Create registers a new domain for a user.
	Create(ctx context.Context, userID int64, domain string) (*entity.Domain, error)
	// GetByID retrieves a domain, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*entity.Domain, error)
	// ListIDs returns the ids of all registered domains.
	ListIDs(ctx context.Context) ([]int64, error)
	// Delete removes a domain. Descendant URLs, assets and OCR results are
	// removed by the schema's cascading foreign keys.
	Delete(ctx context.Context, id int64) error
}

// URLRepository defines the contract for page URL lifecycle management.
type URLRepository interface {
	// Create inserts a URL in the pending state. Duplicate addresses within a
	// domain return ErrConflict.
	Create(ctx context.Context, domainID int64, address string) (*entity.PageURL, error)
	// GetByID retrieves a URL, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*entity.PageURL, error)
	// CountByDomain returns URL counts per status for a domain.
	CountByDomain(ctx context.Context, domainID int64) (map[entity.URLStatus]int, error)
	// Claim atomically moves up to limit due pending URLs (optionally scoped
	// to one domain) to fetching and stamps a lease deadline. A URL whose
	// lease expired while fetching is claimable again. Concurrent callers
	// never receive the same row.
	Claim(ctx context.Context, domainID *int64, limit int, lease time.Duration) ([]*entity.PageURL, error)
	// MarkExtracted records a successful fetch+extract and clears the lease.
	MarkExtracted(ctx context.Context, id int64) error
	// MarkFailed records a terminal failure with its reason.
	MarkFailed(ctx context.Context, id int64, reason string) error
	// ReturnForRetry puts a claimed URL back to pending with an incremented
	// retry count and a backoff deadline.
	ReturnForRetry(ctx context.Context, id int64, reason string, nextRetryAt time.Time) error
}

// AssetRepository defines the contract for asset lifecycle management.
type AssetRepository interface {
	// InsertRefs persists newly extracted references as pending assets,
	// skipping (url, asset_url) pairs that already exist. Returns the number
	// actually inserted.
	InsertRefs(ctx context.Context, urlID int64, refs []entity.AssetRef) (int, error)
	// GetByID retrieves an asset, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*entity.Asset, error)
	// Claim atomically moves up to limit due assets from the given claimable
	// status to its in-progress successor (pending -> downloading,
	// stored -> ocr_pending) and stamps a lease deadline.
	Claim(ctx context.Context, from entity.AssetStatus, limit int, lease time.Duration) ([]*entity.Asset, error)
	// MarkStored records a successful upload with its durable storage key.
	MarkStored(ctx context.Context, id int64, storageKey string) error
	// MarkOCRDone appends an OCR result row and moves the asset to ocr_done
	// in one transaction.
	MarkOCRDone(ctx context.Context, id int64, rec entity.Recognition) error
	// MarkFailed records a terminal failure with its reason.
	MarkFailed(ctx context.Context, id int64, reason string) error
	// ReturnForRetry puts a claimed asset back to its pre-stage status with an
	// incremented retry count and a backoff deadline.
	ReturnForRetry(ctx context.Context, id int64, to entity.AssetStatus, reason string, nextRetryAt time.Time) error
}

// OCRResultRepository defines read access to recorded OCR results.
type OCRResultRepository interface {
	// LatestByAsset returns the most recent result for an asset, or ErrNotFound.
	LatestByAsset(ctx context.Context, assetID int64) (*entity.OCRResult, error)
}
