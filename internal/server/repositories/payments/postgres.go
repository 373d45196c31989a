package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

const paymentColumns = `p.id, p.user_id, p.external_id, p.provider, p.plan, p.amount_cents, p.currency, p.quota_bytes, p.status, p.created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	query :=
		`INSERT INTO payments (user_id, external_id, provider, plan, amount_cents, currency, quota_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, p.UserID, p.ExternalID, p.Provider, p.Plan, p.AmountCents, p.Currency,
		p.QuotaBytes, p.Status).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByExternalID(ctx context.Context, provider, externalID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.provider = $1 AND p.external_id = $2`

	p := &models.Payment{}
	err := r.db.QueryRowContext(ctx, query, provider, externalID).Scan(&p.ID, &p.UserID, &p.ExternalID, &p.Provider,
		&p.Plan, &p.AmountCents, &p.Currency, &p.QuotaBytes, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = 'completed' WHERE id = $1 AND status IN ('pending', 'failed')`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = 'failed' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, n int) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + `, u.name, u.email
		 FROM payments p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $1
		 ORDER BY p.created_at DESC
		 LIMIT $2`
	return r.list(ctx, query, userID, n)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + `, u.name, u.email
		 FROM payments p JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC`
	return r.list(ctx, query)
}

func (r *PostgresRepository) Recent(ctx context.Context, n int) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + `, u.name, u.email
		 FROM payments p JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC
		 LIMIT $1`
	return r.list(ctx, query, n)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.ExternalID, &p.Provider, &p.Plan, &p.AmountCents, &p.Currency,
			&p.QuotaBytes, &p.Status, &p.CreatedAt, &p.UserName, &p.UserEmail); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) RevenueCents(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'completed'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}
