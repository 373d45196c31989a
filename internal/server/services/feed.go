package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/cryptox"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/imagex"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedvault/internal/server/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Upload is one uploaded part of a catalog form.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// FeedInput is the editable metadata of a feed item.
type FeedInput struct {
	Title       string
	Description string
	Resolution  string
	Duration    string
}

type FeedPage struct {
	Items       []models.FeedItem
	TotalPages  int
	CurrentPage int
}

// FeedService manages the catalog and the stored objects behind it.
type FeedService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Storage
	log         logging.Logger
	tempDir     string
}

func NewFeedService(db *sql.DB, m repomanager.RepositoryManager, store storage.Storage, log logging.Logger) *FeedService {
	return &FeedService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "feed"),
		tempDir:     os.TempDir(),
	}
}

// List returns one page of items. page and limit below 1 fall back to 1 and 10.
func (s *FeedService) List(ctx context.Context, page, limit int) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	repo := s.repomanager.Feed(s.db)
	items, err := repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing feed: %w", err)
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting feed: %w", err)
	}

	return &FeedPage{
		Items:       items,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
	}, nil
}

func (s *FeedService) Get(ctx context.Context, id string) (*models.FeedItem, error) {
	return s.repomanager.Feed(s.db).Get(ctx, id)
}

// Create stores both objects and the catalog row. When a file with the same
// SHA-256 is already listed, the existing item is returned with created=false
// and nothing is stored.
func (s *FeedService) Create(ctx context.Context, in FeedInput, file, image *Upload) (item *models.FeedItem, created bool, err error) {
	if file == nil || image == nil {
		return nil, false, fmt.Errorf("%w: both file and image are required", common.ErrorValidation)
	}

	repo := s.repomanager.Feed(s.db)

	spool, hash, size, err := s.spool(file.Body)
	if err != nil {
		return nil, false, err
	}
	defer s.cleanup(spool)

	existing, err := repo.GetByHash(ctx, hash)
	switch {
	case err == nil:
		s.log.Info(ctx, "duplicate upload", "item_id", existing.ID, "hash", hash)
		return existing, false, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, false, fmt.Errorf("error checking file hash: %w", err)
	}

	fileKey, err := s.putSpooled(ctx, spool, file, size)
	if err != nil {
		return nil, false, err
	}
	imageKey, err := s.putImage(ctx, image)
	if err != nil {
		s.deleteObject(ctx, fileKey)
		return nil, false, err
	}

	item, err = repo.Create(ctx, &models.FeedItem{
		Title:         in.Title,
		Description:   in.Description,
		Resolution:    in.Resolution,
		Duration:      in.Duration,
		ImageKey:      imageKey,
		StorageKey:    fileKey,
		FileHash:      hash,
		FileType:      filepath.Ext(fileKey),
		FileSizeBytes: size,
	})
	if err != nil {
		s.deleteObject(ctx, fileKey)
		s.deleteObject(ctx, imageKey)
		if errors.Is(err, common.ErrDuplicateFile) {
			// lost a race with an identical upload
			if existing, getErr := repo.GetByHash(ctx, hash); getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("error creating feed item: %w", err)
	}

	s.log.Info(ctx, "feed item created", "item_id", item.ID, "size", size)
	return item, true, nil
}

// Update replaces metadata and, when given, the file and/or image. Old objects
// are deleted once the row points at the new ones.
func (s *FeedService) Update(ctx context.Context, id string, in FeedInput, file, image *Upload) (*models.FeedItem, error) {
	repo := s.repomanager.Feed(s.db)

	item, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var stale []string
	var fresh []string

	item.Title = in.Title
	item.Description = in.Description
	item.Resolution = in.Resolution
	item.Duration = in.Duration

	if file != nil {
		spool, hash, size, err := s.spool(file.Body)
		if err != nil {
			return nil, err
		}
		defer s.cleanup(spool)

		key, err := s.putSpooled(ctx, spool, file, size)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, key)
		stale = append(stale, item.StorageKey)

		item.StorageKey = key
		item.FileHash = hash
		item.FileType = filepath.Ext(key)
		item.FileSizeBytes = size
	}

	if image != nil {
		key, err := s.putImage(ctx, image)
		if err != nil {
			s.deleteObjects(ctx, fresh)
			return nil, err
		}
		fresh = append(fresh, key)
		stale = append(stale, item.ImageKey)
		item.ImageKey = key
	}

	if err := repo.Update(ctx, item); err != nil {
		s.deleteObjects(ctx, fresh)
		return nil, fmt.Errorf("error updating feed item: %w", err)
	}

	s.deleteObjects(ctx, stale)
	return item, nil
}

// Delete removes the row and then both stored objects.
func (s *FeedService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Feed(s.db)

	item, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting feed item: %w", err)
	}

	s.deleteObjects(ctx, []string{item.StorageKey, item.ImageKey})
	s.log.Info(ctx, "feed item deleted", "item_id", id)
	return nil
}

// spool copies r into a temp file while hashing it.
func (s *FeedService) spool(r io.Reader) (*os.File, string, int64, error) {
	f, err := os.CreateTemp(s.tempDir, "feedvault-upload-*")
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}

	hash, size, err := cryptox.FingerprintTee(f, r)
	if err != nil {
		s.cleanup(f)
		return nil, "", 0, fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		s.cleanup(f)
		return nil, "", 0, fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	return f, hash, size, nil
}

func (s *FeedService) cleanup(f *os.File) {
	name := f.Name()
	f.Close()
	os.Remove(name)
}

func (s *FeedService) putSpooled(ctx context.Context, f *os.File, up *Upload, size int64) (string, error) {
	key := newObjectKey(up.Name)
	if err := s.store.Put(ctx, key, f, size, up.ContentType); err != nil {
		return "", fmt.Errorf("error storing file: %w", err)
	}
	return key, nil
}

func (s *FeedService) putImage(ctx context.Context, up *Upload) (string, error) {
	data, err := imagex.StripExifReader(up.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	key := newObjectKey(up.Name)
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), up.ContentType); err != nil {
		return "", fmt.Errorf("error storing image: %w", err)
	}
	return key, nil
}

func (s *FeedService) deleteObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to delete object", "key", key, "error", err)
	}
}

func (s *FeedService) deleteObjects(ctx context.Context, keys []string) {
	for _, k := range keys {
		s.deleteObject(ctx, k)
	}
}

// newObjectKey keeps the original extension behind a random name.
func newObjectKey(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	return uuid.NewString() + ext
}
