// Package s3 implements a storage backend for S3 compatible object stores
// (AWS S3, Cloudflare R2, MinIO) through the MinIO client
package s3

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/filegate/pkg/storage"
)

const codeNoSuchKey = "NoSuchKey"

type (
	// Config contains the connection settings for the S3 endpoint
	Config struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Region    string
		UseSSL    bool
	}

	// Storage implements the storage.Storage interface for S3 storage
	Storage struct {
		bucket string
		client *minio.Client
		prefix string
	}
)

// New returns a new S3 storage backend for a s3://bucket/prefix URI
func New(bucketURI string, cfg Config) (*Storage, error) {
	uri, err := url.Parse(bucketURI)
	if err != nil {
		return nil, errors.Wrap(err, "parse S3 bucket URI")
	}

	if uri.Scheme != "s3" || uri.Host == "" {
		return nil, errors.New("invalid S3 bucket URI")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create S3 client")
	}

	return &Storage{
		bucket: uri.Host,
		client: client,
		prefix: strings.Trim(uri.Path, "/"),
	}, nil
}

// GetFile implements the storage.Storage GetFile method
func (s Storage) GetFile(ctx context.Context, key string) (io.ReadCloser, *storage.Meta, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "get object reader")
	}

	// GetObject is lazy, the first request happens on Stat
	stat, err := obj.Stat()
	if err != nil {
		if cerr := obj.Close(); cerr != nil {
			logrus.WithError(cerr).Error("closing object reader (leaked fd)")
		}
		return nil, nil, translateError(err, "stat object")
	}

	return obj, &storage.Meta{
		ContentType:  stat.ContentType,
		Size:         stat.Size,
		LastModified: stat.LastModified,
	}, nil
}

// StoreFile implements the storage.Storage StoreFile method
func (s Storage) StoreFile(ctx context.Context, key string, metadata *storage.Meta, data io.Reader) error {
	size := metadata.Size
	if size < 0 {
		size = -1
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), data, size, minio.PutObjectOptions{
		ContentType: metadata.ContentType,
	})
	return errors.Wrap(err, "put object")
}

// DeleteFile implements the storage.Storage DeleteFile method
func (s Storage) DeleteFile(ctx context.Context, key string) error {
	name := s.objectName(key)

	// RemoveObject does not report missing keys
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		return translateError(err, "stat object")
	}

	return errors.Wrap(
		s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}),
		"remove object",
	)
}

func (s Storage) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func translateError(err error, action string) error {
	if minio.ToErrorResponse(err).Code == codeNoSuchKey {
		return os.ErrNotExist // Surrounding code reacts on ErrNotExist
	}
	return errors.Wrap(err, action)
}
