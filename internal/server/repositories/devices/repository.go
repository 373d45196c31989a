// Package devices declares the repository contract for known user devices
// and the login history.
package devices

import (
	"context"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	// AddPending records a device seen at login unless it is already known.
	AddPending(ctx context.Context, d *models.Device) error
	IsApproved(ctx context.Context, userID, deviceToken string) (bool, error)
	List(ctx context.Context, userID string) ([]models.Device, error)
	Approve(ctx context.Context, userID, deviceToken string) error
	Remove(ctx context.Context, userID, deviceToken string) error
	AddLogin(ctx context.Context, rec *models.LoginRecord) error
}
