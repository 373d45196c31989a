package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Reserve(ctx context.Context, userID string, size int64) (*models.Quota, error) {
	if size < 0 {
		return nil, common.ErrorValidation
	}

	query :=
		`UPDATE users
		 SET download_limit_bytes = download_limit_bytes - $2,
		     total_downloaded_bytes = total_downloaded_bytes + $2
		 WHERE id = $1 AND download_limit_bytes >= $2
		 RETURNING download_limit_bytes, total_purchased_bytes, total_downloaded_bytes`

	q, err := scanQuota(r.db.QueryRowContext(ctx, query, userID, size))
	if errors.Is(err, common.ErrorNotFound) {
		if _, getErr := r.Get(ctx, userID); getErr != nil {
			return nil, getErr
		}
		return nil, common.ErrInsufficientQuota
	}
	return q, err
}

func (r *PostgresRepository) Credit(ctx context.Context, userID string, size int64) (*models.Quota, error) {
	if size < 0 {
		return nil, common.ErrorValidation
	}

	query :=
		`UPDATE users
		 SET download_limit_bytes = download_limit_bytes + $2,
		     total_purchased_bytes = total_purchased_bytes + $2
		 WHERE id = $1
		 RETURNING download_limit_bytes, total_purchased_bytes, total_downloaded_bytes`

	return scanQuota(r.db.QueryRowContext(ctx, query, userID, size))
}

func (r *PostgresRepository) Refund(ctx context.Context, userID string, size int64) (*models.Quota, error) {
	if size < 0 {
		return nil, common.ErrorValidation
	}

	query :=
		`UPDATE users
		 SET download_limit_bytes = download_limit_bytes + $2,
		     total_downloaded_bytes = GREATEST(total_downloaded_bytes - $2, 0)
		 WHERE id = $1
		 RETURNING download_limit_bytes, total_purchased_bytes, total_downloaded_bytes`

	return scanQuota(r.db.QueryRowContext(ctx, query, userID, size))
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Quota, error) {
	query :=
		`SELECT download_limit_bytes, total_purchased_bytes, total_downloaded_bytes
		 FROM users WHERE id = $1`

	return scanQuota(r.db.QueryRowContext(ctx, query, userID))
}

func scanQuota(row *sql.Row) (*models.Quota, error) {
	q := &models.Quota{}
	if err := row.Scan(&q.DownloadLimitBytes, &q.TotalPurchasedBytes, &q.TotalDownloadedBytes); err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}
