package gateway

import (
	"bytes"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/filegate/pkg/cache"
)

func (g *Gateway) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var (
		cacheKey = requestURL(r)
		key      = keyFromPath(r.URL.EscapedPath())
		logger   = logrus.WithFields(logrus.Fields{
			"url": cacheKey,
			"key": key,
		})
	)

	logger.Debug("Received request")

	cached, err := g.cache.Match(r.Context(), cacheKey)
	switch {
	case err == nil:
		g.metrics.recordRetrieval(retrievalHit)
		if err = cached.Serve(w); err != nil {
			logger.WithError(err).Debug("Unable to write cached response")
		}
		return

	case errors.Is(err, cache.ErrMiss):
		// Fetch from store

	default:
		logger.WithError(err).Warn("Unable to query cache, treating as miss")
	}

	body, meta, err := g.store.GetFile(r.Context(), key)
	switch {
	case err == nil:
		// This is fine

	case errors.Is(err, os.ErrNotExist):
		g.metrics.recordRetrieval(retrievalNotFound)
		writePlain(w, http.StatusNotFound, "file not found")
		return

	default:
		g.metrics.recordRetrieval(retrievalError)
		logger.WithError(err).Error("Unable to fetch object")
		writePlain(w, http.StatusInternalServerError, "Unable to access object")
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.WithError(err).Error("closing object reader (leaked fd)")
		}
	}()

	g.metrics.recordRetrieval(retrievalMiss)

	resp := &cache.Response{
		Status: http.StatusOK,
		Header: http.Header{},
	}
	resp.Header.Set("Content-Type", resolveContentType(key, meta.ContentType))
	resp.Header.Set("Content-Disposition", "inline")

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)

	if !cache.Accepts(g.cache, meta.Size) {
		if _, err = io.Copy(w, body); err != nil {
			logger.WithError(err).Warn("Unable to stream object")
		}
		return
	}

	buf := &cacheBuffer{accepts: func(n int64) bool { return cache.Accepts(g.cache, n) }}
	if _, err = io.Copy(w, io.TeeReader(body, buf)); err != nil {
		// Incomplete bodies must not end up in the cache
		logger.WithError(err).Warn("Unable to stream object")
		return
	}

	if buf.dropped {
		return
	}

	resp.Body = buf.buf.Bytes()
	if err = g.cache.Put(r.Context(), cacheKey, resp); err != nil {
		logger.WithError(err).Warn("Unable to populate cache")
	}
}

// cacheBuffer collects a streamed body for the cache and releases it as
// soon as the body grows beyond what the cache accepts
type cacheBuffer struct {
	buf     bytes.Buffer
	accepts func(int64) bool
	dropped bool
}

func (c *cacheBuffer) Write(p []byte) (int, error) {
	if c.dropped {
		return len(p), nil
	}

	if !c.accepts(int64(c.buf.Len() + len(p))) {
		c.dropped = true
		c.buf = bytes.Buffer{}
		return len(p), nil
	}

	return c.buf.Write(p)
}

// requestURL reconstructs the absolute URL of the request to be used as
// cache key: query string and host are part of the key
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.RequestURI()
}
