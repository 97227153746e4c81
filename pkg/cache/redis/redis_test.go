package redis

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luzifer/filegate/pkg/cache"
)

type fakeClient struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}

	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestPutAndMatch(t *testing.T) {
	var (
		ctx = context.Background()
		fc  = newFakeClient()
		c   = &Cache{client: fc, ttl: time.Hour}
	)

	_, err := c.Match(ctx, "http://example.com/a.png")
	assert.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.Put(ctx, "http://example.com/a.png", &cache.Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"image/png"}, "Content-Disposition": {"inline"}},
		Body:   []byte{0x89, 'P', 'N', 'G'},
	}))
	assert.Equal(t, time.Hour, fc.ttls[keyPrefix+"http://example.com/a.png"])

	resp, err := c.Match(ctx, "http://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, resp.Body)
}

func TestMatchErrors(t *testing.T) {
	fc := newFakeClient()
	c := &Cache{client: fc}

	fc.values[keyPrefix+"broken"] = "{not json"
	_, err := c.Match(context.Background(), "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrMiss)

	fc.failGet = errors.New("connection refused")
	_, err = c.Match(context.Background(), "anything")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrMiss)
}
