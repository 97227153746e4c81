package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseClone(t *testing.T) {
	orig := &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"image/png"}},
		Body:   []byte("png"),
	}

	clone := orig.Clone()
	clone.Header.Set("Content-Type", "text/plain")
	clone.Body[0] = 'x'

	assert.Equal(t, "image/png", orig.Header.Get("Content-Type"))
	assert.Equal(t, "png", string(orig.Body))
}

func TestResponseServe(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, (&Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Disposition": {"inline"}},
		Body:   []byte("data"),
	}).Serve(rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "data", rec.Body.String())
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}

	require.NoError(t, c.Put(context.Background(), "k", &Response{}))
	_, err := c.Match(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestAccepts(t *testing.T) {
	assert.False(t, Accepts(Nop{}, 0))
	assert.False(t, Accepts(Nop{}, 1<<20))

	var c Cache = struct{ Cache }{Nop{}}
	assert.True(t, Accepts(c, 1<<30), "caches without Admitter accept everything")
}
