// Package storage defines the interface to talk to the object store backends
package storage

import (
	"context"
	"io"
	"time"
)

type (
	// Meta contains the metadata stored along with an object
	Meta struct {
		ContentType  string
		Size         int64
		LastModified time.Time
	}

	// Storage is the interface to implement when building a storage backend.
	// Backends signal a missing object with an error matching os.ErrNotExist.
	Storage interface {
		GetFile(ctx context.Context, key string) (io.ReadCloser, *Meta, error)
		StoreFile(ctx context.Context, key string, metadata *Meta, data io.Reader) error
		DeleteFile(ctx context.Context, key string) error
	}
)
