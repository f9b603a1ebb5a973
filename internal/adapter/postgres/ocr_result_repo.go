package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

// OCRResultRepoImpl provides a concrete implementation for the OCRResultRepository interface using PostgreSQL.
type OCRResultRepoImpl struct {
	db *pgxpool.Pool
}

// NewOCRResultRepo creates a new instance of OCRResultRepoImpl.
func NewOCRResultRepo(db *pgxpool.Pool) *OCRResultRepoImpl {
	return &OCRResultRepoImpl{db: db}
}

// LatestByAsset returns the newest result row for the asset. Results are
// append-only; older rows remain as history.
func (r *OCRResultRepoImpl) LatestByAsset(ctx context.Context, assetID int64) (*entity.OCRResult, error) {
	query := `
		SELECT id, asset_id, content, confidence, created_at
		FROM ocr_result
		WHERE asset_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1;
	`
	var res entity.OCRResult
	err := r.db.QueryRow(ctx, query, assetID).Scan(
		&res.ID, &res.AssetID, &res.Content, &res.Confidence, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
