package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courtfinder"

// Fetch and cache outcomes used as label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
)

// Metrics exports computation-pass telemetry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	feedFetches    *prometheus.CounterVec
	recordsSkipped prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	computeSeconds prometheus.Histogram
}

// New registers the collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Reservation feed fetches by outcome.",
		}, []string{"result"}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Feed records dropped during normalization.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Per-date feed cache lookups by outcome.",
		}, []string{"result"}),
		computeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Latency of a full computation pass, feed fetch included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	var err error
	m.feedFetches = register(reg, m.feedFetches, &err)
	m.recordsSkipped = register(reg, m.recordsSkipped, &err)
	m.cacheLookups = register(reg, m.cacheLookups, &err)
	m.computeSeconds = register(reg, m.computeSeconds, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register adopts an already registered collector of the same type so New
// can run more than once against one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = fmt.Errorf("register metric: %w", err)
	}
	return c
}

func (m *Metrics) FeedFetch(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.feedFetches.WithLabelValues(ResultError).Inc()
		return
	}
	m.feedFetches.WithLabelValues(ResultOK).Inc()
}

func (m *Metrics) RecordsSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsSkipped.Add(float64(n))
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ComputeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.computeSeconds.Observe(d.Seconds())
}
