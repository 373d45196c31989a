// Package users declares the repository contract for user accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

// LoginInfo is the metadata captured on every successful login.
type LoginInfo struct {
	IPAddress   string
	UserAgent   string
	Country     string
	DeviceToken string
	At          time.Time
}

type Repository interface {
	// Create inserts a user; a taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// RecordLogin stores last-login fields and the current device token.
	RecordLogin(ctx context.Context, id string, info LoginInfo) error
	Count(ctx context.Context) (int64, error)
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
}
