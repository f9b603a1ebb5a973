package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

// DomainRepoImpl provides a concrete implementation for the DomainRepository interface using PostgreSQL.
type DomainRepoImpl struct {
	db *pgxpool.Pool
}

// NewDomainRepo creates a new instance of DomainRepoImpl.
func NewDomainRepo(db *pgxpool.Pool) *DomainRepoImpl {
	return &DomainRepoImpl{db: db}
}

func (r *DomainRepoImpl) Create(ctx context.Context, userID int64, domain string) (*entity.Domain, error) {
	query := `
		INSERT INTO domain (user_id, domain)
		VALUES ($1, $2)
		RETURNING id, user_id, domain, created_at;
	`
	var d entity.Domain
	err := r.db.QueryRow(ctx, query, userID, domain).Scan(&d.ID, &d.UserID, &d.Domain, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return &d, nil
}

func (r *DomainRepoImpl) GetByID(ctx context.Context, id int64) (*entity.Domain, error) {
	query := `SELECT id, user_id, domain, created_at FROM domain WHERE id = $1;`
	var d entity.Domain
	err := r.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.UserID, &d.Domain, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DomainRepoImpl) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM domain ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the domain row; URLs, assets and OCR results follow via the
// schema's ON DELETE CASCADE constraints.
func (r *DomainRepoImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM domain WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
