package downloads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

const grantColumns = `jti, user_id, feed_item_id, size_bytes, expires_at, redeem_count, redeemed_at, refunded_at, created_at`

type scanner interface {
	Scan(dest ...any) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanGrant(s scanner) (*models.DownloadGrant, error) {
	g := &models.DownloadGrant{}
	err := s.Scan(&g.JTI, &g.UserID, &g.FeedItemID, &g.SizeBytes, &g.ExpiresAt, &g.RedeemCount, &g.RedeemedAt,
		&g.RefundedAt, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) CreateGrant(ctx context.Context, g *models.DownloadGrant) error {
	query :=
		`INSERT INTO download_grants (jti, user_id, feed_item_id, size_bytes, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, g.JTI, g.UserID, g.FeedItemID, g.SizeBytes, g.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetGrant(ctx context.Context, jti string) (*models.DownloadGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM download_grants WHERE jti = $1`
	return scanGrant(r.db.QueryRowContext(ctx, query, jti))
}

func (r *PostgresRepository) Redeem(ctx context.Context, jti string, singleUse bool, at time.Time) (*models.DownloadGrant, error) {
	query :=
		`UPDATE download_grants
		 SET redeem_count = redeem_count + 1, redeemed_at = COALESCE(redeemed_at, $2)
		 WHERE jti = $1 AND refunded_at IS NULL`
	if singleUse {
		query += ` AND redeemed_at IS NULL`
	}
	query += ` RETURNING ` + grantColumns

	g, err := scanGrant(r.db.QueryRowContext(ctx, query, jti, at))
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInvalidOrExpired
	}
	return g, err
}

func (r *PostgresRepository) ClaimExpired(ctx context.Context, now time.Time, limit int) ([]models.DownloadGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM download_grants
		 WHERE expires_at < $1 AND redeemed_at IS NULL AND refunded_at IS NULL
		 ORDER BY expires_at
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.DownloadGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkRefunded(ctx context.Context, jti string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE download_grants SET refunded_at = $2 WHERE jti = $1 AND refunded_at IS NULL`, jti, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) AppendLog(ctx context.Context, rec *models.DownloadRecord) error {
	query :=
		`INSERT INTO downloaded_files (user_id, feed_item_id, size_bytes)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query, rec.UserID, rec.FeedItemID, rec.SizeBytes).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecentByUser(ctx context.Context, userID string, n int) ([]models.DownloadRecord, error) {
	query :=
		`SELECT id, user_id, feed_item_id, size_bytes, created_at
		 FROM downloaded_files
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.DownloadRecord
	for rows.Next() {
		var rec models.DownloadRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.FeedItemID, &rec.SizeBytes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountLog(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloaded_files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
