// Package quota is the ledger for per-user download quota. All counters are
// integer bytes and every mutation is a single conditional statement, so
// concurrent reservations for one user cannot overdraw the balance.
package quota

import (
	"context"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	// Reserve deducts size bytes if the balance covers it and adds them to
	// the downloaded total. It fails with common.ErrInsufficientQuota, or
	// common.ErrorNotFound for an unknown user.
	Reserve(ctx context.Context, userID string, size int64) (*models.Quota, error)
	// Credit adds purchased bytes to the balance and the purchased total.
	Credit(ctx context.Context, userID string, size int64) (*models.Quota, error)
	// Refund reverses a prior Reserve.
	Refund(ctx context.Context, userID string, size int64) (*models.Quota, error)
	Get(ctx context.Context, userID string) (*models.Quota, error)
}
