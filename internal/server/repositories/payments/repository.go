// Package payments declares the repository contract for quota purchases.
package payments

import (
	"context"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Payment) (*models.Payment, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (*models.Payment, error)
	// MarkCompleted flips a pending or failed payment to completed. It reports
	// false when the payment was already completed, so callers credit quota at
	// most once. Failed payments are accepted because invoices can settle late.
	MarkCompleted(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, n int) ([]models.Payment, error)
	// ListAll returns every payment newest first with user name and email.
	ListAll(ctx context.Context) ([]models.Payment, error)
	Recent(ctx context.Context, n int) ([]models.Payment, error)
	// RevenueCents sums completed payments.
	RevenueCents(ctx context.Context) (int64, error)
}
