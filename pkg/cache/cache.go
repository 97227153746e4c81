// Package cache defines the read-through response cache used when serving
// stored objects. Entries are keyed by the full request URL and are never
// invalidated by this application: backends decide about eviction.
package cache

import (
	"bytes"
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// ErrMiss is returned by Match when no entry exists for the key
var ErrMiss = errors.New("cache miss")

type (
	// Cache is the interface to implement when building a cache backend
	Cache interface {
		Match(ctx context.Context, key string) (*Response, error)
		Put(ctx context.Context, key string, resp *Response) error
	}

	// Admitter is implemented by caches refusing some responses by size.
	// Callers may skip buffering a body the cache would not keep.
	Admitter interface {
		Accepts(size int64) bool
	}

	// Response is a snapshot of a HTTP response
	Response struct {
		Status int         `json:"status"`
		Header http.Header `json:"header"`
		Body   []byte      `json:"body"`
	}

	// Nop is a Cache never storing anything
	Nop struct{}
)

// Accepts reports whether c would keep a response with a body of the
// given size. Caches not implementing Admitter accept every size.
func Accepts(c Cache, size int64) bool {
	if a, ok := c.(Admitter); ok {
		return a.Accepts(size)
	}
	return true
}

// Clone returns a deep copy of the response
func (r *Response) Clone() *Response {
	return &Response{
		Status: r.Status,
		Header: r.Header.Clone(),
		Body:   bytes.Clone(r.Body),
	}
}

// Serve writes the snapshot to the given ResponseWriter
func (r *Response) Serve(w http.ResponseWriter) error {
	for k, v := range r.Header {
		w.Header()[k] = append([]string(nil), v...)
	}

	w.WriteHeader(r.Status)
	_, err := w.Write(r.Body)
	return errors.Wrap(err, "write body")
}

// Match implements the Cache interface and always misses
func (Nop) Match(context.Context, string) (*Response, error) { return nil, ErrMiss }

// Put implements the Cache interface and discards the response
func (Nop) Put(context.Context, string, *Response) error { return nil }

// Accepts implements the Admitter interface: nothing is kept
func (Nop) Accepts(int64) bool { return false }
