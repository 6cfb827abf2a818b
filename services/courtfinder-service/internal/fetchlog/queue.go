package fetchlog

import (
	"context"
	"log/slog"
	"time"
)

// Queue moves entries off the request path. Record never blocks: when the
// buffer is full the entry is dropped and logged.
type Queue struct {
	next    Recorder
	entries chan queued
	timeout time.Duration
	logger  *slog.Logger
}

type queued struct {
	ctx   context.Context
	entry Entry
}

func NewQueue(next Recorder, size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		next:    next,
		entries: make(chan queued, size),
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Record enqueues e. The caller's context is kept for its values (trace
// context) but not its cancellation.
func (q *Queue) Record(ctx context.Context, e Entry) error {
	select {
	case q.entries <- queued{ctx: context.WithoutCancel(ctx), entry: e}:
	default:
		q.logger.Warn("fetch log queue full; dropping entry", "pass_id", e.PassID, "court_date", e.CourtDate.Format(time.DateOnly))
	}
	return nil
}

// Run writes queued entries until ctx is done, then drains what is left.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case item := <-q.entries:
			q.write(item)
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case item := <-q.entries:
			q.write(item)
		default:
			return
		}
	}
}

func (q *Queue) write(item queued) {
	ctx, cancel := context.WithTimeout(item.ctx, q.timeout)
	defer cancel()
	if err := q.next.Record(ctx, item.entry); err != nil {
		q.logger.Warn("fetch log write failed", "err", err, "pass_id", item.entry.PassID)
	}
}
