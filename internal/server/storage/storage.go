// Package storage holds the blob stores behind feed item files and
// thumbnails: a local directory or an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/feedvault/internal/server/config"
)

// Storage stores objects by key. Open and Exists report a missing object as
// common.ErrNotFoundOnDisk / false; Delete of a missing object is not an error.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the backend selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return NewLocal(cfg.UploadsDir)
	case config.StorageS3:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
