package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
)

func TestNormalize_ConvertsToVenueTime(t *testing.T) {
	v := laVenue(t)
	ri, err := Normalize(feed.Reservation{
		CourtLabel: "Main 3",
		Start:      "2024-06-01T17:00:00.000Z",
		End:        "2024-06-01T18:00:00.000Z",
	}, v.Location)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ri.Location != "Main" || ri.Court != "Court 3" {
		t.Fatalf("unexpected identity %q/%q", ri.Location, ri.Court)
	}
	if got := ri.Start.Format("2006-01-02 15:04 MST"); got != "2024-06-01 10:00 PDT" {
		t.Fatalf("unexpected start %s", got)
	}
	if got := ri.End.Format("15:04"); got != "11:00" {
		t.Fatalf("unexpected end %s", got)
	}
}

func TestNormalize_TimestampForms(t *testing.T) {
	want := time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-06-01T17:00:00Z",
		"2024-06-01T17:00:00.000Z",
		"2024-06-01T17:00:00.1234567Z",
		"2024-06-01T17:00:00",
		"2024-06-01T10:00:00-07:00",
	} {
		got, err := parseFeedTime(raw)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if !got.Truncate(time.Second).Equal(want) {
			t.Fatalf("%q: expected %s, got %s", raw, want, got)
		}
	}
}

func TestNormalize_Errors(t *testing.T) {
	cases := []struct {
		name string
		rec  feed.Reservation
		want error
	}{
		{"single token label", feed.Reservation{CourtLabel: "Main", Start: "2024-06-01T17:00:00Z", End: "2024-06-01T18:00:00Z"}, ErrMalformedLabel},
		{"blank label", feed.Reservation{CourtLabel: "   ", Start: "2024-06-01T17:00:00Z", End: "2024-06-01T18:00:00Z"}, ErrMalformedLabel},
		{"bad start", feed.Reservation{CourtLabel: "Main 1", Start: "yesterday", End: "2024-06-01T18:00:00Z"}, ErrMalformedTimestamp},
		{"bad end", feed.Reservation{CourtLabel: "Main 1", Start: "2024-06-01T17:00:00Z", End: ""}, ErrMalformedTimestamp},
		{"zero length", feed.Reservation{CourtLabel: "Main 1", Start: "2024-06-01T17:00:00Z", End: "2024-06-01T17:00:00Z"}, ErrEmptyInterval},
		{"reversed", feed.Reservation{CourtLabel: "Main 1", Start: "2024-06-01T18:00:00Z", End: "2024-06-01T17:00:00Z"}, ErrEmptyInterval},
	}
	for _, tc := range cases {
		if _, err := Normalize(tc.rec, time.UTC); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestNormalizeAll_IsolatesBadRecords(t *testing.T) {
	records := []feed.Reservation{
		{CourtLabel: "Main 1", Start: "2024-06-01T17:00:00Z", End: "2024-06-01T18:00:00Z"},
		{CourtLabel: "Main", Start: "2024-06-01T17:00:00Z", End: "2024-06-01T18:00:00Z"},
		{CourtLabel: "Annex 2 (indoor)", Start: "2024-06-01T19:00:00Z", End: "2024-06-01T20:00:00Z"},
		{CourtLabel: "Annex 3", Start: "garbage", End: "2024-06-01T20:00:00Z"},
	}
	intervals, skipped := NormalizeAll(records, time.UTC)
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(intervals))
	}
	if intervals[1].Location != "Annex" || intervals[1].Court != "Court 2" {
		t.Fatalf("unexpected second interval %+v", intervals[1])
	}
	if len(skipped) != 2 || skipped[0].Index != 1 || skipped[1].Index != 3 {
		t.Fatalf("unexpected skipped %+v", skipped)
	}

	reasons := SkipReasons(skipped)
	if reasons["malformed court label"] != 1 || reasons["malformed timestamp"] != 1 {
		t.Fatalf("unexpected reasons %v", reasons)
	}
	if SkipReasons(nil) != nil {
		t.Fatal("expected nil reasons for no skips")
	}
}
