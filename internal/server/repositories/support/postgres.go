package support

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

const threadColumns = `id, user_id, user_name, status, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*models.SupportThread, error) {
	return r.getOne(ctx, `SELECT `+threadColumns+` FROM support_threads WHERE user_id = $1`, userID)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.SupportThread, error) {
	return r.getOne(ctx, `SELECT `+threadColumns+` FROM support_threads WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.SupportThread, error) {
	t := &models.SupportThread{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.UserID, &t.UserName, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidInput(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	msgs, err := r.messages(ctx, `WHERE thread_id = $1`, t.ID)
	if err != nil {
		return nil, err
	}
	t.Conversation = msgs[t.ID]
	if t.Conversation == nil {
		t.Conversation = []models.SupportMessage{}
	}
	return t, nil
}

func (r *PostgresRepository) messages(ctx context.Context, where string, args ...any) (map[string][]models.SupportMessage, error) {
	query := `SELECT id, thread_id, sender, message, created_at FROM support_messages ` + where + ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.SupportMessage)
	for rows.Next() {
		var m models.SupportMessage
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out[m.ThreadID] = append(out[m.ThreadID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, userID, userName string) (*models.SupportThread, error) {
	query :=
		`INSERT INTO support_threads (user_id, user_name)
		 VALUES ($1, $2)
		 RETURNING ` + threadColumns

	t := &models.SupportThread{}
	err := r.db.QueryRowContext(ctx, query, userID, userName).
		Scan(&t.ID, &t.UserID, &t.UserName, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Conversation = []models.SupportMessage{}
	return t, nil
}

func (r *PostgresRepository) AddMessage(ctx context.Context, threadID, sender, message string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO support_messages (thread_id, sender, message) VALUES ($1, $2, $3)`,
		threadID, sender, message); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE support_threads SET updated_at = now() WHERE id = $1`, threadID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, threadID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE support_threads SET status = $2 WHERE id = $1`, threadID, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExactlyOne(res)
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.SupportThread, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+threadColumns+` FROM support_threads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var threads []models.SupportThread
	for rows.Next() {
		var t models.SupportThread
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserName, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("db error: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	if len(threads) == 0 {
		return []models.SupportThread{}, nil
	}

	msgs, err := r.messages(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range threads {
		threads[i].Conversation = msgs[threads[i].ID]
		if threads[i].Conversation == nil {
			threads[i].Conversation = []models.SupportMessage{}
		}
	}
	return threads, nil
}
