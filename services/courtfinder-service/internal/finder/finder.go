package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/availability"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/fetchlog"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/metrics"
)

var (
	ErrInvalidQuery    = errors.New("invalid query")
	ErrFeedUnavailable = errors.New("reservation feed unavailable")
)

// Query is the raw user input for one pass. Empty fields take defaults: the
// venue's default date and the full opening window.
type Query struct {
	Date      string
	Start     string
	End       string
	Duration  string
	Locations []string
}

type Config struct {
	Venue    availability.Venue
	Source   feed.Source
	OrgID    string
	Recorder fetchlog.Recorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

type Finder struct {
	venue    availability.Venue
	source   feed.Source
	orgID    string
	recorder fetchlog.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

// cacheProber is implemented by sources that can tell whether a date will
// be served without an upstream call.
type cacheProber interface {
	Cached(ctx context.Context, date time.Time) bool
}

func New(cfg Config) (*Finder, error) {
	if err := cfg.Venue.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil {
		return nil, errors.New("finder: source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Finder{
		venue:    cfg.Venue,
		source:   cfg.Source,
		orgID:    cfg.OrgID,
		recorder: cfg.Recorder,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Now,
		tracer:   otel.Tracer("courtfinder/finder"),
	}, nil
}

func (f *Finder) Venue() availability.Venue { return f.venue }

// ResolveDate parses a YYYY-MM-DD court date in the venue timezone and checks
// it against the booking horizon. An empty value is the default date.
func (f *Finder) ResolveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return f.venue.DefaultDate(f.now()), nil
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, f.venue.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidQuery)
	}
	if err := f.venue.CheckDate(date, f.now()); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

// ParseWindow turns the start/end/duration inputs into a window spec. All
// empty means no filter. A missing start is the opening time and a missing
// end is the closing time. Duration is hours ("1.5") or a Go duration
// ("90m").
func (f *Finder) ParseWindow(start, end, duration string) (*availability.WindowSpec, error) {
	start, end, duration = strings.TrimSpace(start), strings.TrimSpace(end), strings.TrimSpace(duration)
	if start == "" && end == "" && duration == "" {
		return nil, nil
	}
	if end != "" && duration != "" {
		return nil, fmt.Errorf("%w: give either end or duration, not both", ErrInvalidQuery)
	}

	spec := &availability.WindowSpec{
		Start: availability.Clock{Hour: f.venue.OpeningHour},
		End:   availability.ExplicitEnd{At: availability.Clock{Hour: f.venue.ClosingHour}},
	}
	if start != "" {
		c, err := availability.ParseClock(start)
		if err != nil {
			return nil, fmt.Errorf("%w: start: %v", ErrInvalidQuery, err)
		}
		spec.Start = c
	}
	switch {
	case end != "":
		c, err := availability.ParseClock(end)
		if err != nil {
			return nil, fmt.Errorf("%w: end: %v", ErrInvalidQuery, err)
		}
		spec.End = availability.ExplicitEnd{At: c}
	case duration != "":
		d, err := parseDuration(duration)
		if err != nil {
			return nil, fmt.Errorf("%w: duration: %v", ErrInvalidQuery, err)
		}
		spec.End = availability.Duration{Length: d}
	}
	return spec, nil
}

func parseDuration(raw string) (time.Duration, error) {
	if h, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(h * float64(time.Hour)), nil
	}
	return time.ParseDuration(raw)
}

// Find runs one computation pass: fetch the day's reservations, compute the
// views, then record the pass. Feed failures return ErrFeedUnavailable and
// no partial result.
func (f *Finder) Find(ctx context.Context, q Query) (availability.Result, error) {
	ctx, span := f.tracer.Start(ctx, "finder.find")
	defer span.End()

	date, err := f.ResolveDate(q.Date)
	if err != nil {
		span.SetStatus(codes.Error, "invalid date")
		return availability.Result{}, err
	}
	window, err := f.ParseWindow(q.Start, q.End, q.Duration)
	if err != nil {
		span.SetStatus(codes.Error, "invalid window")
		return availability.Result{}, err
	}
	span.SetAttributes(
		attribute.String("courtfinder.court_date", date.Format(time.DateOnly)),
		attribute.String("courtfinder.org_id", f.orgID),
	)

	started := time.Now()
	entry := fetchlog.Entry{
		PassID:    uuid.NewString(),
		OrgID:     f.orgID,
		CourtDate: date,
		At:        f.now(),
	}
	if p, ok := f.source.(cacheProber); ok {
		entry.Cached = p.Cached(ctx, date)
	}

	records, err := f.source.Reservations(ctx, date)
	f.metrics.FeedFetch(err)
	if err != nil {
		f.logger.Error("feed fetch failed",
			"err", err,
			"court_date", date.Format(time.DateOnly),
			"org_id", f.orgID,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "feed unavailable")
		entry.Status = fetchlog.StatusFeedError
		entry.Error = err.Error()
		entry.Duration = time.Since(started)
		f.record(ctx, entry)
		return availability.Result{}, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}

	res := availability.ComputeViews(f.venue, availability.Request{
		Date:      date,
		Window:    window,
		Locations: q.Locations,
	}, records)

	if len(res.Skipped) > 0 {
		f.logger.Warn("skipped feed records",
			"count", len(res.Skipped),
			"reasons", availability.SkipReasons(res.Skipped),
			"court_date", date.Format(time.DateOnly),
		)
	}
	if res.Warning != nil {
		f.logger.Debug("window rejected; using opening hours", "reason", res.Warning.Reason, "court_date", date.Format(time.DateOnly))
	}

	elapsed := time.Since(started)
	f.metrics.RecordsSkipped(len(res.Skipped))
	f.metrics.ComputeDuration(elapsed)
	span.SetAttributes(
		attribute.Int("courtfinder.records", len(records)),
		attribute.Int("courtfinder.skipped", len(res.Skipped)),
		attribute.Int("courtfinder.locations", len(res.Locations)),
		attribute.Bool("courtfinder.cached", entry.Cached),
	)

	entry.Status = fetchlog.StatusOK
	entry.Records = len(records)
	entry.Skipped = len(res.Skipped)
	entry.Locations = len(res.Locations)
	entry.Duration = elapsed
	f.record(ctx, entry)
	return res, nil
}

func (f *Finder) record(ctx context.Context, e fetchlog.Entry) {
	if f.recorder == nil {
		return
	}
	if err := f.recorder.Record(ctx, e); err != nil {
		f.logger.Warn("fetch log record failed", "err", err, "pass_id", e.PassID)
	}
}
