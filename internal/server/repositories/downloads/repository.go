// Package downloads persists download grants (one per issued download token)
// and the per-user download log.
package downloads

import (
	"context"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	CreateGrant(ctx context.Context, g *models.DownloadGrant) error
	GetGrant(ctx context.Context, jti string) (*models.DownloadGrant, error)
	// Redeem records one redemption. With singleUse set, a grant that was
	// already redeemed is rejected. Refunded grants are always rejected.
	// Rejections yield common.ErrInvalidOrExpired.
	Redeem(ctx context.Context, jti string, singleUse bool, at time.Time) (*models.DownloadGrant, error)
	// ClaimExpired locks up to limit grants that expired before now and were
	// never redeemed or refunded. Must run inside a transaction.
	ClaimExpired(ctx context.Context, now time.Time, limit int) ([]models.DownloadGrant, error)
	MarkRefunded(ctx context.Context, jti string, at time.Time) error

	AppendLog(ctx context.Context, rec *models.DownloadRecord) error
	RecentByUser(ctx context.Context, userID string, n int) ([]models.DownloadRecord, error)
	CountLog(ctx context.Context) (int64, error)
}
