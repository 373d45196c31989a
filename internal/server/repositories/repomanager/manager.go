package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/devices"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/feed"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/payments"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/quota"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/support"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Quota(db dbx.DBTX) quota.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Devices(db dbx.DBTX) devices.Repository
	Feed(db dbx.DBTX) feed.Repository
	Downloads(db dbx.DBTX) downloads.Repository
	Payments(db dbx.DBTX) payments.Repository
	Support(db dbx.DBTX) support.Repository
}
