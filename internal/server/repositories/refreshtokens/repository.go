// Package refreshtokens stores the opaque tokens that renew user sessions.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.RefreshToken) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete is a no-op for unknown tokens.
	Delete(ctx context.Context, token string) error

	// DeleteExpired drops the user's tokens that expired before now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)

	// RevokeDevice drops every token the user holds on deviceToken.
	RevokeDevice(ctx context.Context, userID, deviceToken string) (int64, error)
}
