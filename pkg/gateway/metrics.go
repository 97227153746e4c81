package gateway

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	retrievalHit      = "hit"
	retrievalMiss     = "miss"
	retrievalNotFound = "not_found"
	retrievalError    = "error"
)

// Metrics exports upload and retrieval counters to Prometheus. A nil
// *Metrics records nothing.
type Metrics struct {
	uploads       *prometheus.CounterVec
	uploadedBytes prometheus.Counter
	retrievals    *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway metrics
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "filegate"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload requests by response status code.",
		}, []string{"code"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative size of files written to the object store.",
		}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrieval requests by cache / store result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.uploadedBytes, m.retrievals} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register gateway metric")
		}
	}

	return m, nil
}

func (m *Metrics) recordUpload(status int, size int64) {
	if m == nil {
		return
	}

	m.uploads.WithLabelValues(strconv.Itoa(status)).Inc()
	if status == http.StatusOK {
		m.uploadedBytes.Add(float64(size))
	}
}

func (m *Metrics) recordRetrieval(result string) {
	if m == nil {
		return
	}

	m.retrievals.WithLabelValues(result).Inc()
}
