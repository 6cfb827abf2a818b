package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/courtfinder/libs/db"
	otelx "github.com/md-rashed-zaman/courtfinder/libs/otel"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/fetchlog"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FetchLogRepository appends pass entries to feed_fetch_log (see
// migrations/0001_feed_fetch_log.sql).
type FetchLogRepository struct {
	db execer
}

func NewFetchLogRepository(pool *db.Pool) *FetchLogRepository {
	return &FetchLogRepository{db: pool}
}

var _ fetchlog.Recorder = (*FetchLogRepository)(nil)

func (r *FetchLogRepository) Record(ctx context.Context, e fetchlog.Entry) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	var errText *string
	if e.Error != "" {
		errText = &e.Error
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO feed_fetch_log
			(pass_id, org_id, court_date, records, skipped, locations, cached, duration_ms, status, error, traceparent, tracestate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (pass_id) DO NOTHING
	`, e.PassID, e.OrgID, e.CourtDate.Format("2006-01-02"), e.Records, e.Skipped, e.Locations, e.Cached,
		e.Duration.Milliseconds(), string(e.Status), errText, traceparent, tracestate, e.At)
	return err
}
