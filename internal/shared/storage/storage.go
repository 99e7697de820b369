package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore abstracts where uploaded files live. Handlers only deal in
// relative keys; the public URL prefix is a serving concern.
//
//go:generate mockgen -source=storage.go -destination=mock/storage_mock.go -package=mock
type BlobStore interface {
	Save(key string, r io.Reader) error
	Exists(key string) (bool, error)
	// Delete removes a stored file. Deleting a missing key is not an error.
	Delete(key string) error
	URL(key string) string
}

type diskStore struct {
	root      string
	urlPrefix string
}

// NewDiskStore stores blobs under root and serves them below urlPrefix
// (e.g. "/storage").
func NewDiskStore(root, urlPrefix string) BlobStore {
	return &diskStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *diskStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *diskStore) Save(key string, r io.Reader) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, r)
	return err
}

func (s *diskStore) Exists(key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *diskStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *diskStore) URL(key string) string {
	return s.urlPrefix + "/" + strings.TrimLeft(key, "/")
}
