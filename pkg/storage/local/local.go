// Package local implements a storage.Storage backend for local file storage
//
// Objects live below <basePath>/objects, their metadata as JSON below
// <basePath>/meta so no key can address a metadata file.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/filegate/pkg/storage"
)

const (
	storageLocalDirPermission = 0o700

	objectsDir = "objects"
	metaDir    = "meta"
	metaSuffix = ".json"
)

// ErrInvalidKey is returned by StoreFile for keys the filesystem would
// alias with another key ("a//b", "a/", "../a")
var ErrInvalidKey = errors.New("key not representable on local storage")

// Storage implements the storage.Storage interface for local file storage
type Storage struct {
	basePath string
}

// New returns a new local file storage
func New(basePath string) Storage { return Storage{basePath} }

// GetFile implements the storage.Storage GetFile method
func (s Storage) GetFile(_ context.Context, key string) (io.ReadCloser, *storage.Meta, error) {
	if !isCanonicalKey(key) {
		return nil, nil, os.ErrNotExist
	}

	f, err := os.Open(s.objectPath(key)) //#nosec:G304 // Path is confined to basePath
	if err != nil {
		return nil, nil, notExist(fmt.Errorf("opening object file: %w", err))
	}

	stat, err := f.Stat()
	if err != nil {
		s.closeFile(f)
		return nil, nil, errors.Wrap(err, "stat object file")
	}

	if stat.IsDir() {
		s.closeFile(f)
		return nil, nil, os.ErrNotExist
	}

	metadata, err := s.loadMeta(key)
	switch {
	case err == nil:
		// This is fine

	case errors.Is(err, os.ErrNotExist):
		// Objects without metadata get their content type inferred later
		metadata = &storage.Meta{LastModified: stat.ModTime()}

	default:
		s.closeFile(f)
		return nil, nil, err
	}

	metadata.Size = stat.Size()
	return f, metadata, nil
}

// StoreFile implements the storage.Storage StoreFile method
func (s Storage) StoreFile(_ context.Context, key string, metadata *storage.Meta, data io.Reader) (err error) {
	if !isCanonicalKey(key) || key == "" {
		return errors.Wrapf(ErrInvalidKey, "storing %q", key)
	}

	objectPath := s.objectPath(key)

	if err = os.MkdirAll(path.Dir(objectPath), storageLocalDirPermission); err != nil {
		return errors.Wrap(err, "create object dir")
	}

	f, err := os.Create(objectPath) //#nosec:G304 // Path is confined to basePath
	if err != nil {
		return errors.Wrap(err, "create object file")
	}
	defer s.closeFile(f)

	if _, err := io.Copy(f, data); err != nil {
		return errors.Wrap(err, "write object file")
	}

	return s.saveMeta(key, storage.Meta{
		ContentType:  metadata.ContentType,
		LastModified: time.Now(),
	})
}

// DeleteFile implements the storage.Storage DeleteFile method
func (s Storage) DeleteFile(_ context.Context, key string) error {
	if !isCanonicalKey(key) {
		return os.ErrNotExist
	}

	if err := os.Remove(s.objectPath(key)); err != nil {
		return notExist(fmt.Errorf("removing object file: %w", err))
	}

	if err := os.Remove(s.metaPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove metadata file")
	}

	return nil
}

func (Storage) closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		logrus.WithError(err).Error("closing object file (leaked fd)")
	}
}

// isCanonicalKey reports whether the filesystem maps the key to a path
// of its own: no empty, "." or ".." segments and no trailing slash
func isCanonicalKey(key string) bool {
	return path.Clean("/"+key) == "/"+key
}

// notExist maps lookups traversing a regular file to os.ErrNotExist
func notExist(err error) error {
	if errors.Is(err, syscall.ENOTDIR) {
		return os.ErrNotExist
	}
	return err
}

// objectPath roots the key before joining so ".." segments cannot leave
// the storage directory
func (s Storage) objectPath(key string) string {
	return path.Join(s.basePath, objectsDir, path.Clean("/"+key))
}

func (s Storage) metaPath(key string) string {
	return path.Join(s.basePath, metaDir, path.Clean("/"+key)) + metaSuffix
}

func (s Storage) loadMeta(key string) (*storage.Meta, error) {
	f, err := os.Open(s.metaPath(key)) //#nosec:G304 // Path is confined to basePath
	if err != nil {
		return nil, notExist(fmt.Errorf("opening metadata file: %w", err))
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Error("closing metadata file (leaked fd)")
		}
	}()

	out := new(storage.Meta)
	return out, errors.Wrap(
		json.NewDecoder(f).Decode(out),
		"decode metadata file",
	)
}

func (s Storage) saveMeta(key string, metadata storage.Meta) error {
	metaPath := s.metaPath(key)

	if err := os.MkdirAll(path.Dir(metaPath), storageLocalDirPermission); err != nil {
		return errors.Wrap(err, "create metadata dir")
	}

	f, err := os.Create(metaPath) //#nosec:G304 // Path is confined to basePath
	if err != nil {
		return errors.Wrap(err, "create metadata file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Error("closing metadata file (leaked fd)")
		}
	}()

	return errors.Wrap(
		json.NewEncoder(f).Encode(metadata),
		"write metadata file",
	)
}
