package fetchlog

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusOK        Status = "ok"
	StatusFeedError Status = "feed_error"
)

// Entry is the operational record of one computation pass. It carries
// counts and timing only, never the computed availability.
type Entry struct {
	PassID    string
	OrgID     string
	CourtDate time.Time
	Records   int
	Skipped   int
	Locations int
	Cached    bool
	Duration  time.Duration
	Status    Status
	Error     string
	At        time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type RecorderFunc func(ctx context.Context, e Entry) error

func (f RecorderFunc) Record(ctx context.Context, e Entry) error { return f(ctx, e) }

// Multi fans an entry out to every sink; one failing sink does not stop the
// others.
type Multi []Recorder

func NewMulti(recorders ...Recorder) Multi {
	var out Multi
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m Multi) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
