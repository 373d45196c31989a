// Package feed provides the PostgreSQL-backed feed item repository.
package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

const itemColumns = `id, title, description, image_key, storage_key, file_hash, resolution, duration, file_type,
		file_size_bytes, download_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanItem(s scanner) (*models.FeedItem, error) {
	it := &models.FeedItem{}
	err := s.Scan(&it.ID, &it.Title, &it.Description, &it.ImageKey, &it.StorageKey, &it.FileHash, &it.Resolution,
		&it.Duration, &it.FileType, &it.FileSizeBytes, &it.DownloadCount, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]models.FeedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM feed_items ORDER BY created_at DESC, id OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]models.FeedItem, 0, limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.FeedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM feed_items WHERE id = $1`
	return scanItem(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*models.FeedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM feed_items WHERE file_hash = $1`
	return scanItem(r.db.QueryRowContext(ctx, query, hash))
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.FeedItem) (*models.FeedItem, error) {
	query :=
		`INSERT INTO feed_items (title, description, image_key, storage_key, file_hash, resolution, duration, file_type, file_size_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, item.Title, item.Description, item.ImageKey, item.StorageKey, item.FileHash,
		item.Resolution, item.Duration, item.FileType, item.FileSizeBytes).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateFile
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Update(ctx context.Context, item *models.FeedItem) error {
	query :=
		`UPDATE feed_items
		 SET title = $2, description = $3, image_key = $4, storage_key = $5, file_hash = $6,
		     resolution = $7, duration = $8, file_type = $9, file_size_bytes = $10
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, item.ID, item.Title, item.Description, item.ImageKey, item.StorageKey,
		item.FileHash, item.Resolution, item.Duration, item.FileType, item.FileSizeBytes)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicateFile
		}
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feed_items WHERE id = $1`, id)
	if err != nil {
		if dbx.IsInvalidInput(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) IncrementDownloads(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE feed_items SET download_count = download_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) Top(ctx context.Context, n int) ([]models.TopItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, download_count FROM feed_items ORDER BY download_count DESC, title LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.TopItem
	for rows.Next() {
		var it models.TopItem
		if err := rows.Scan(&it.ID, &it.Title, &it.DownloadCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
