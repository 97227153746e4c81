// Package gateway implements the HTTP surface of filegate: uploads on
// POST /upload and cached retrieval of stored objects on every other path.
package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Luzifer/filegate/pkg/cache"
	"github.com/Luzifer/filegate/pkg/storage"
)

const (
	uploadPath = "/upload"

	bytesPerMB = 1024 * 1024
)

type (
	// Config contains the settings of the upload handler
	Config struct {
		// Domain is the host used to build public URLs
		Domain string
		// MaxSizeMB is the upload size ceiling in megabytes
		MaxSizeMB int64
		// SharedSecret must match the Authorization header when set
		SharedSecret string
	}

	// Gateway serves uploads and retrievals against a storage backend
	Gateway struct {
		cfg     Config
		store   storage.Storage
		cache   cache.Cache
		metrics *Metrics
		now     func() time.Time
	}

	// Option configures optional parts of the Gateway
	Option func(*Gateway)
)

// WithClock replaces the clock used to timestamp upload keys
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithMetrics enables recording of request metrics
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New creates a Gateway. A nil cache disables response caching.
func New(cfg Config, store storage.Storage, c cache.Cache, opts ...Option) *Gateway {
	if c == nil {
		c = cache.Nop{}
	}

	g := &Gateway{
		cfg:   cfg,
		store: store,
		cache: c,
		now:   time.Now,
	}

	for _, o := range opts {
		o(g)
	}

	return g
}

// Handler returns the router dispatching requests to the upload and
// retrieval handlers
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.Path(uploadPath).Methods(http.MethodPost).HandlerFunc(g.handleUpload)
	r.Path(uploadPath).HandlerFunc(handleMethodNotAllowed)
	r.PathPrefix("/").HandlerFunc(g.handleRetrieve)

	// Keys are taken from the raw path, so no redirects to cleaned paths
	r.SkipClean(true)

	return r
}

func (g *Gateway) maxSizeBytes() int64 {
	return g.cfg.MaxSizeMB * bytesPerMB
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writePlain(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
