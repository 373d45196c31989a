package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) AddPending(ctx context.Context, d *models.Device) error {
	query :=
		`INSERT INTO user_devices (user_id, device_token, ip_address, user_agent, country)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, device_token) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, d.UserID, d.DeviceToken, d.IPAddress, d.UserAgent, d.Country); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsApproved(ctx context.Context, userID, deviceToken string) (bool, error) {
	var approved bool
	err := r.db.QueryRowContext(ctx,
		`SELECT approved FROM user_devices WHERE user_id = $1 AND device_token = $2`, userID, deviceToken).Scan(&approved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return approved, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]models.Device, error) {
	query :=
		`SELECT user_id, device_token, ip_address, user_agent, country, approved, created_at
		 FROM user_devices
		 WHERE user_id = $1
		 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Device{}
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.UserID, &d.DeviceToken, &d.IPAddress, &d.UserAgent, &d.Country, &d.Approved, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Approve(ctx context.Context, userID, deviceToken string) error {
	query :=
		`INSERT INTO user_devices (user_id, device_token, approved)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (user_id, device_token) DO UPDATE SET approved = TRUE`

	if _, err := r.db.ExecContext(ctx, query, userID, deviceToken); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, deviceToken string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM user_devices WHERE user_id = $1 AND device_token = $2`, userID, deviceToken); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddLogin(ctx context.Context, rec *models.LoginRecord) error {
	query :=
		`INSERT INTO login_history (user_id, device_token, ip_address, user_agent, country, login_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query, rec.UserID, rec.DeviceToken, rec.IPAddress, rec.UserAgent, rec.Country, rec.LoginTime); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
