package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

// AssetRepoImpl provides a concrete implementation for the AssetRepository interface using PostgreSQL.
type AssetRepoImpl struct {
	db *pgxpool.Pool
}

// NewAssetRepo creates a new instance of AssetRepoImpl.
func NewAssetRepo(db *pgxpool.Pool) *AssetRepoImpl {
	return &AssetRepoImpl{db: db}
}

const assetColumns = `id, url_id, asset_url, asset_type, status, storage_key, retry_count, next_retry_at, lease_expires_at, failure_reason, created_at, updated_at`

func scanAsset(row pgx.Row) (*entity.Asset, error) {
	var a entity.Asset
	var status string
	err := row.Scan(
		&a.ID,
		&a.URLID,
		&a.AssetURL,
		(*string)(&a.Type),
		&status,
		&a.StorageKey,
		&a.RetryCount,
		&a.NextRetryAt,
		&a.LeaseExpiresAt,
		&a.FailureReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Status, err = entity.ParseAssetStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertRefs persists extracted references as pending assets. The unique
// (url_id, asset_url) index plus ON CONFLICT DO NOTHING makes re-extraction
// of the same page a no-op.
func (r *AssetRepoImpl) InsertRefs(ctx context.Context, urlID int64, refs []entity.AssetRef) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, ref := range refs {
		batch.Queue(`
			INSERT INTO asset (url_id, asset_url, asset_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (url_id, asset_url) DO NOTHING;
		`, urlID, ref.URL, string(ref.Type))
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range refs {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert asset batch: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *AssetRepoImpl) GetByID(ctx context.Context, id int64) (*entity.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM asset WHERE id = $1;`
	a, err := scanAsset(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// claimSuccessor maps a claimable status to its in-progress successor.
var claimSuccessor = map[entity.AssetStatus]entity.AssetStatus{
	entity.AssetStatusPending: entity.AssetStatusDownloading,
	entity.AssetStatusStored:  entity.AssetStatusOCRPending,
}

// Claim moves a batch of due assets from a claimable status to its
// in-progress successor under FOR UPDATE SKIP LOCKED, stamping a lease so a
// crashed worker's batch becomes claimable again after expiry.
func (r *AssetRepoImpl) Claim(ctx context.Context, from entity.AssetStatus, limit int, lease time.Duration) ([]*entity.Asset, error) {
	to, ok := claimSuccessor[from]
	if !ok {
		return nil, fmt.Errorf("asset status %q is not claimable", from)
	}

	query := `
		UPDATE asset SET status = $1, lease_expires_at = $2
		WHERE id IN (
			SELECT id FROM asset
			WHERE ((status = $3 AND next_retry_at <= NOW())
			   OR (status = $1 AND lease_expires_at < NOW()))
			ORDER BY next_retry_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + assetColumns + `;`

	rows, err := r.db.Query(ctx, query, string(to), time.Now().Add(lease), string(from), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*entity.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, a)
	}
	return claimed, rows.Err()
}

func (r *AssetRepoImpl) MarkStored(ctx context.Context, id int64, storageKey string) error {
	return r.transition(ctx, id,
		`UPDATE asset SET status = 'stored', storage_key = $2, lease_expires_at = NULL, failure_reason = ''
		 WHERE id = $1 AND status = 'downloading';`, storageKey)
}

// MarkOCRDone appends the result row and advances the asset inside one
// transaction, so a crash cannot leave a result without the terminal status
// or vice versa.
func (r *AssetRepoImpl) MarkOCRDone(ctx context.Context, id int64, rec entity.Recognition) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE asset SET status = 'ocr_done', lease_expires_at = NULL, failure_reason = ''
		 WHERE id = $1 AND status = 'ocr_pending';`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ocr_result (asset_id, content, confidence) VALUES ($1, $2, $3);`,
		id, rec.Text, rec.Confidence)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *AssetRepoImpl) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.transition(ctx, id,
		`UPDATE asset SET status = 'failed', lease_expires_at = NULL, failure_reason = $2
		 WHERE id = $1 AND status IN ('downloading', 'ocr_pending');`, reason)
}

func (r *AssetRepoImpl) ReturnForRetry(ctx context.Context, id int64, to entity.AssetStatus, reason string, nextRetryAt time.Time) error {
	from, ok := claimSuccessor[to]
	if !ok {
		return fmt.Errorf("asset status %q is not a retry target", to)
	}
	return r.transition(ctx, id,
		`UPDATE asset SET status = $2, retry_count = retry_count + 1,
		        next_retry_at = $3, failure_reason = $4, lease_expires_at = NULL
		 WHERE id = $1 AND status = $5;`, string(to), nextRetryAt, reason, string(from))
}

func (r *AssetRepoImpl) transition(ctx context.Context, id int64, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
