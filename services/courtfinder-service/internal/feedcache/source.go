package feedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/metrics"
)

const (
	DefaultTTL          = 60 * time.Second
	DefaultFetchTimeout = 30 * time.Second
)

// Source memoizes an upstream feed per calendar date. A different date is a
// different key, so switching dates always refetches. Store failures fall
// back to the upstream and never fail a pass.
type Source struct {
	next    feed.Source
	store   Store
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Options struct {
	// Namespace separates venues sharing one store, typically the org id.
	Namespace    string
	TTL          time.Duration
	// FetchTimeout bounds a shared upstream fetch, which outlives the
	// request that started it.
	FetchTimeout time.Duration
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func New(next feed.Source, store Store, opts Options) *Source {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Source{
		next:    next,
		store:   store,
		prefix:  "courtfinder:feed:" + opts.Namespace + ":",
		ttl:     opts.TTL,
		timeout: opts.FetchTimeout,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

var _ feed.Source = (*Source)(nil)

// Key is the store key for date.
func (s *Source) Key(date time.Time) string {
	return s.prefix + date.Format(time.DateOnly)
}

func (s *Source) Reservations(ctx context.Context, date time.Time) ([]feed.Reservation, error) {
	key := s.Key(date)

	if recs, ok := s.lookup(ctx, key); ok {
		return recs, nil
	}

	// Callers share one fetch per key; a caller that goes away must not take
	// the fetch down with it.
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		recs, err := s.next.Reservations(fetchCtx, date)
		if err != nil {
			return nil, err
		}
		s.save(fetchCtx, key, recs)
		return recs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]feed.Reservation), nil
	}
}

// Cached reports whether date is currently served from the store.
func (s *Source) Cached(ctx context.Context, date time.Time) bool {
	_, ok, err := s.store.Get(ctx, s.Key(date))
	return err == nil && ok
}

func (s *Source) lookup(ctx context.Context, key string) ([]feed.Reservation, bool) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.metrics.CacheLookup(metrics.ResultError)
		s.logger.Warn("feed cache read failed", "err", err, "key", key)
		return nil, false
	}
	if !ok {
		s.metrics.CacheLookup(metrics.ResultMiss)
		return nil, false
	}
	var recs []feed.Reservation
	if err := json.Unmarshal(raw, &recs); err != nil {
		s.metrics.CacheLookup(metrics.ResultError)
		s.logger.Warn("feed cache entry corrupt", "err", err, "key", key)
		return nil, false
	}
	if recs == nil {
		recs = []feed.Reservation{}
	}
	s.metrics.CacheLookup(metrics.ResultHit)
	return recs, true
}

func (s *Source) save(ctx context.Context, key string, recs []feed.Reservation) {
	raw, err := json.Marshal(recs)
	if err != nil {
		s.logger.Warn("feed cache encode failed", "err", err, "key", key)
		return
	}
	if err := s.store.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("feed cache write failed", "err", fmt.Errorf("set %s: %w", key, err))
	}
}
