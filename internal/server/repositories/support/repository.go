// Package support declares the repository contract for support threads.
package support

import (
	"context"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	// GetByUser returns the user's thread with its conversation.
	GetByUser(ctx context.Context, userID string) (*models.SupportThread, error)
	Get(ctx context.Context, id string) (*models.SupportThread, error)
	Create(ctx context.Context, userID, userName string) (*models.SupportThread, error)
	// AddMessage appends to the conversation and bumps the thread's updated_at.
	AddMessage(ctx context.Context, threadID, sender, message string) error
	SetStatus(ctx context.Context, threadID, status string) error
	// List returns all threads, most recently updated first.
	List(ctx context.Context) ([]models.SupportThread, error)
}
