package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
)

const uniqueViolation = "23505"

// URLRepoImpl provides a concrete implementation for the URLRepository interface using PostgreSQL.
type URLRepoImpl struct {
	db *pgxpool.Pool
}

// NewURLRepo creates a new instance of URLRepoImpl.
func NewURLRepo(db *pgxpool.Pool) *URLRepoImpl {
	return &URLRepoImpl{db: db}
}

const urlColumns = `id, domain_id, url, status, retry_count, next_retry_at, lease_expires_at, failure_reason, created_at, updated_at`

func scanURL(row pgx.Row) (*entity.PageURL, error) {
	var u entity.PageURL
	var status string
	err := row.Scan(
		&u.ID,
		&u.DomainID,
		&u.Address,
		&status,
		&u.RetryCount,
		&u.NextRetryAt,
		&u.LeaseExpiresAt,
		&u.FailureReason,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.Status, err = entity.ParseURLStatus(status); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *URLRepoImpl) Create(ctx context.Context, domainID int64, address string) (*entity.PageURL, error) {
	query := `
		INSERT INTO url (domain_id, url)
		VALUES ($1, $2)
		RETURNING ` + urlColumns + `;`
	u, err := scanURL(r.db.QueryRow(ctx, query, domainID, address))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (r *URLRepoImpl) GetByID(ctx context.Context, id int64) (*entity.PageURL, error) {
	query := `SELECT ` + urlColumns + ` FROM url WHERE id = $1;`
	u, err := scanURL(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *URLRepoImpl) CountByDomain(ctx context.Context, domainID int64) (map[entity.URLStatus]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM url WHERE domain_id = $1 GROUP BY status;`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[entity.URLStatus]int)
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		status, err := entity.ParseURLStatus(raw)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Claim moves a batch of due URLs to fetching in a single statement. The
// FOR UPDATE SKIP LOCKED subquery guarantees concurrent sweeps never claim
// the same row; a fetching row with an expired lease is claimable again.
func (r *URLRepoImpl) Claim(ctx context.Context, domainID *int64, limit int, lease time.Duration) ([]*entity.PageURL, error) {
	query := `
		UPDATE url SET status = 'fetching', lease_expires_at = $1
		WHERE id IN (
			SELECT id FROM url
			WHERE ((status = 'pending' AND next_retry_at <= NOW())
			   OR (status = 'fetching' AND lease_expires_at < NOW()))
			  AND ($2::bigint IS NULL OR domain_id = $2)
			ORDER BY next_retry_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + urlColumns + `;`

	rows, err := r.db.Query(ctx, query, time.Now().Add(lease), domainID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []*entity.PageURL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, u)
	}
	return claimed, rows.Err()
}

func (r *URLRepoImpl) MarkExtracted(ctx context.Context, id int64) error {
	return r.transition(ctx, id,
		`UPDATE url SET status = 'extracted', lease_expires_at = NULL, failure_reason = ''
		 WHERE id = $1 AND status = 'fetching';`)
}

func (r *URLRepoImpl) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.transition(ctx, id,
		`UPDATE url SET status = 'failed', lease_expires_at = NULL, failure_reason = $2
		 WHERE id = $1 AND status = 'fetching';`, reason)
}

func (r *URLRepoImpl) ReturnForRetry(ctx context.Context, id int64, reason string, nextRetryAt time.Time) error {
	return r.transition(ctx, id,
		`UPDATE url SET status = 'pending', retry_count = retry_count + 1,
		        next_retry_at = $2, failure_reason = $3, lease_expires_at = NULL
		 WHERE id = $1 AND status = 'fetching';`, nextRetryAt, reason)
}

// transition runs a guarded status update. Zero rows affected means the row
// is gone or was advanced by another worker; that is ErrNotFound, not a
// transient store error, and must not be retried.
func (r *URLRepoImpl) transition(ctx context.Context, id int64, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
