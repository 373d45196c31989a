package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/filex"
)

// LocalStorage keeps objects as flat files under a root directory. Keys are
// reduced to their base name, so "../x" and "/uploads/x" both address root/x.
type LocalStorage struct {
	root string
}

func NewLocal(dir string) (*LocalStorage, error) {
	root, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Root() string { return s.root }

func (s *LocalStorage) path(key string) (string, error) {
	p, err := filex.SafeJoin(s.root, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return p, nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	return nil
}

func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, 0, common.ErrNotFoundOnDisk
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, common.ErrNotFoundOnDisk
		}
		return nil, 0, fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, 0, common.ErrNotFoundOnDisk
	}
	return f, st.Size(), nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, nil
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrIoFailure, err)
	}
	return !st.IsDir(), nil
}
