// Package gcs implements a storage backend saving objects in GCS
package gcs

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/Luzifer/filegate/pkg/storage"
)

// Storage implements the storage.Storage interface for GCS storage
type Storage struct {
	bucket string
	client *gcs.Client
	prefix string
}

// New returns a new GCS storage backend for a gs://bucket/prefix URI
func New(ctx context.Context, bucketURI string) (*Storage, error) {
	bucket, prefix, err := parseBucketURI(bucketURI)
	if err != nil {
		return nil, err
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create GCS client")
	}

	return &Storage{
		bucket: bucket,
		client: client,
		prefix: prefix,
	}, nil
}

func parseBucketURI(bucketURI string) (bucket, prefix string, err error) {
	uri, err := url.Parse(bucketURI)
	if err != nil {
		return "", "", errors.Wrap(err, "parse GCS bucket URI")
	}

	if uri.Scheme != "gs" || uri.Host == "" {
		return "", "", errors.New("invalid GCS bucket URI")
	}

	return uri.Host, strings.TrimLeft(uri.Path, "/"), nil
}

// GetFile implements the storage.Storage GetFile method
func (s Storage) GetFile(ctx context.Context, key string) (io.ReadCloser, *storage.Meta, error) {
	r, err := s.object(key).NewReader(ctx)
	switch {
	case err == nil:
		// This is fine

	case errors.Is(err, gcs.ErrObjectNotExist):
		return nil, nil, os.ErrNotExist // Surrounding code reacts on ErrNotExist

	default:
		return nil, nil, errors.Wrap(err, "get object reader")
	}

	return r, &storage.Meta{
		ContentType:  r.Attrs.ContentType,
		Size:         r.Attrs.Size,
		LastModified: r.Attrs.LastModified,
	}, nil
}

// StoreFile implements the storage.Storage StoreFile method
func (s Storage) StoreFile(ctx context.Context, key string, metadata *storage.Meta, data io.Reader) error {
	// Cancelling the writer context discards a partial upload
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.object(key).NewWriter(ctx)
	w.ContentType = metadata.ContentType

	if _, err := io.Copy(w, data); err != nil {
		cancel()
		return errors.Wrap(err, "upload content")
	}

	return errors.Wrap(w.Close(), "finish upload")
}

// DeleteFile implements the storage.Storage DeleteFile method
func (s Storage) DeleteFile(ctx context.Context, key string) error {
	err := s.object(key).Delete(ctx)
	switch {
	case err == nil:
		return nil

	case errors.Is(err, gcs.ErrObjectNotExist):
		return os.ErrNotExist

	default:
		return errors.Wrap(err, "delete object")
	}
}

func (s Storage) object(key string) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(objectName(s.prefix, key))
}

// objectName prepends the bucket prefix without cleaning the key, so
// "a//b" and "a/b" stay distinct objects
func objectName(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Clean(prefix) + "/" + key
}
