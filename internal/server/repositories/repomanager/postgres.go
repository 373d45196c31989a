// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/migrations"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/devices"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/feed"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/payments"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/quota"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/support"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Quota(db dbx.DBTX) quota.Repository {
	return quota.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Devices(db dbx.DBTX) devices.Repository {
	return devices.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Feed(db dbx.DBTX) feed.Repository {
	return feed.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Downloads(db dbx.DBTX) downloads.Repository {
	return downloads.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Payments(db dbx.DBTX) payments.Repository {
	return payments.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Support(db dbx.DBTX) support.Repository {
	return support.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to PostgreSQL through the pgx stdlib driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}
