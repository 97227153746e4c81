package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luzifer/filegate/pkg/cache"
	"github.com/Luzifer/filegate/pkg/cache/lru"
	"github.com/Luzifer/filegate/pkg/storage/local"
	"github.com/Luzifer/filegate/pkg/storage/memory"
	"github.com/Luzifer/filegate/pkg/storage/s3"
)

func TestGetStorage(t *testing.T) {
	ctx := context.Background()

	for uri, check := range map[string]func(any) bool{
		"file://./data/": func(s any) bool { _, ok := s.(local.Storage); return ok },
		"/var/lib/data":  func(s any) bool { _, ok := s.(local.Storage); return ok },
		"mem://":         func(s any) bool { _, ok := s.(*memory.Storage); return ok },
		"s3://bucket/p":  func(s any) bool { _, ok := s.(*s3.Storage); return ok },
	} {
		cfg.Storage = uri
		cfg.S3Endpoint = "localhost:9000"

		s, err := getStorage(ctx)
		require.NoError(t, err, uri)
		assert.True(t, check(s), uri)
	}

	cfg.Storage = "ftp://host/dir"
	_, err := getStorage(ctx)
	assert.Error(t, err)
}

func TestGetCache(t *testing.T) {
	ctx := context.Background()

	cfg.Cache = "lru"
	cfg.CacheSize = 8
	c, err := getCache(ctx)
	require.NoError(t, err)
	assert.IsType(t, &lru.Cache{}, c)

	cfg.Cache = "none"
	c, err = getCache(ctx)
	require.NoError(t, err)
	assert.IsType(t, cache.Nop{}, c)

	cfg.Cache = "memcached"
	_, err = getCache(ctx)
	assert.Error(t, err)
}
