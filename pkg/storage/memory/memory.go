// Package memory implements a storage.Storage backend keeping all objects
// in process memory. Contents are lost on restart.
package memory

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Luzifer/filegate/pkg/storage"
)

type (
	object struct {
		data []byte
		meta storage.Meta
	}

	// Storage implements the storage.Storage interface in memory
	Storage struct {
		objects map[string]object
		lock    sync.RWMutex
	}
)

// New returns a new, empty memory storage
func New() *Storage {
	return &Storage{objects: make(map[string]object)}
}

// GetFile implements the storage.Storage GetFile method
func (s *Storage) GetFile(_ context.Context, key string) (io.ReadCloser, *storage.Meta, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, nil, os.ErrNotExist
	}

	meta := obj.meta
	return io.NopCloser(bytes.NewReader(obj.data)), &meta, nil
}

// StoreFile implements the storage.Storage StoreFile method
func (s *Storage) StoreFile(_ context.Context, key string, metadata *storage.Meta, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return errors.Wrap(err, "read object content")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.objects[key] = object{
		data: buf,
		meta: storage.Meta{
			ContentType:  metadata.ContentType,
			Size:         int64(len(buf)),
			LastModified: time.Now(),
		},
	}

	return nil
}

// DeleteFile implements the storage.Storage DeleteFile method
func (s *Storage) DeleteFile(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.objects[key]; !ok {
		return os.ErrNotExist
	}

	delete(s.objects, key)
	return nil
}

// Keys returns the keys of all stored objects in no particular order
func (s *Storage) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}

	return keys
}
