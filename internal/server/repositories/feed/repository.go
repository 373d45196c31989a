// Package feed declares the repository contract for catalog feed items.
package feed

import (
	"context"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, offset, limit int) ([]models.FeedItem, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (*models.FeedItem, error)
	GetByHash(ctx context.Context, hash string) (*models.FeedItem, error)
	// Create inserts an item; a duplicate file hash yields common.ErrDuplicateFile.
	Create(ctx context.Context, item *models.FeedItem) (*models.FeedItem, error)
	Update(ctx context.Context, item *models.FeedItem) error
	Delete(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
	Top(ctx context.Context, n int) ([]models.TopItem, error)
}
