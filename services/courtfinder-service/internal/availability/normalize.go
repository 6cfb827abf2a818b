package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
)

var (
	ErrMalformedLabel     = errors.New("malformed court label")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrEmptyInterval      = errors.New("reservation ends before it starts")
)

// ReservedInterval is one booked [Start, End) range for a court, in the venue
// timezone.
type ReservedInterval struct {
	Location string
	Court    string
	Start    time.Time
	End      time.Time
}

// Skipped records a feed record that could not be normalized.
type Skipped struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// ParseCourtLabel splits a feed label like "Main 3" into ("Main", "Court 3").
// Tokens after the court number are ignored.
func ParseCourtLabel(label string) (location, court string, err error) {
	fields := strings.Fields(label)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLabel, label)
	}
	return fields[0], "Court " + fields[1], nil
}

// parseFeedTime reads a UTC feed timestamp. Values carry fractional seconds
// and a trailing "Z"; a missing marker is still read as UTC.
func parseFeedTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "Z"), "z")
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, raw)
	}
	return t, nil
}

func Normalize(rec feed.Reservation, loc *time.Location) (ReservedInterval, error) {
	location, court, err := ParseCourtLabel(rec.CourtLabel)
	if err != nil {
		return ReservedInterval{}, err
	}
	start, err := parseFeedTime(rec.Start)
	if err != nil {
		return ReservedInterval{}, err
	}
	end, err := parseFeedTime(rec.End)
	if err != nil {
		return ReservedInterval{}, err
	}
	if !end.After(start) {
		return ReservedInterval{}, fmt.Errorf("%w: %s >= %s", ErrEmptyInterval, rec.Start, rec.End)
	}
	return ReservedInterval{
		Location: location,
		Court:    court,
		Start:    start.In(loc),
		End:      end.In(loc),
	}, nil
}

// NormalizeAll normalizes every record it can and reports the rest; one bad
// record never drops the batch.
func NormalizeAll(records []feed.Reservation, loc *time.Location) ([]ReservedInterval, []Skipped) {
	intervals := make([]ReservedInterval, 0, len(records))
	var skipped []Skipped
	for i, rec := range records {
		ri, err := Normalize(rec, loc)
		if err != nil {
			skipped = append(skipped, Skipped{
				Index:  i,
				Label:  rec.CourtLabel,
				Reason: skipReason(err),
				Err:    err,
			})
			continue
		}
		intervals = append(intervals, ri)
	}
	return intervals, skipped
}

// SkipReasons counts skipped records per reason for a single log line.
func SkipReasons(skipped []Skipped) map[string]int {
	if len(skipped) == 0 {
		return nil
	}
	out := make(map[string]int, 3)
	for _, s := range skipped {
		out[s.Reason]++
	}
	return out
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedLabel):
		return ErrMalformedLabel.Error()
	case errors.Is(err, ErrMalformedTimestamp):
		return ErrMalformedTimestamp.Error()
	case errors.Is(err, ErrEmptyInterval):
		return ErrEmptyInterval.Error()
	default:
		return "invalid record"
	}
}
