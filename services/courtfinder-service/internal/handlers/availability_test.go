package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/availability"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/finder"
)

func newTestServer(t *testing.T, src feed.Source) *httptest.Server {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	f, err := finder.New(finder.Config{
		Venue:  availability.DefaultVenue(loc),
		Source: src,
		OrgID:  "7031",
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Now:    func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, loc) },
	})
	if err != nil {
		t.Fatalf("new finder: %v", err)
	}
	mux := http.NewServeMux()
	NewAvailabilityHandler(f, slog.New(slog.NewJSONHandler(io.Discard, nil))).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sampleFeed() feed.Source {
	return feed.SourceFunc(func(context.Context, time.Time) ([]feed.Reservation, error) {
		return []feed.Reservation{
			{CourtLabel: "Main 3", Start: "2024-06-01T17:00:00.000Z", End: "2024-06-01T18:00:00.000Z"},
			{CourtLabel: "Annex 1", Start: "2024-06-01T16:00:00.000Z", End: "2024-06-01T16:30:00.000Z"},
		}, nil
	})
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestAvailability_CompactView(t *testing.T) {
	srv := newTestServer(t, sampleFeed())

	var body struct {
		Date        string          `json:"date"`
		Timezone    string          `json:"timezone"`
		Window      windowItem      `json:"window"`
		Warning     *warningItem    `json:"warning"`
		Locations   []string        `json:"locations"`
		CompactView struct {
			Locations []string `json:"locations"`
			Rows      []struct {
				Time   string              `json:"time"`
				Courts map[string][]string `json:"courts"`
			} `json:"rows"`
		} `json:"compact_view"`
		Tables           []json.RawMessage `json:"tables"`
		UnknownLocations []string          `json:"unknown_locations"`
	}
	status := getJSON(t, srv.URL+"/api/v1/availability?date=2024-06-01&start=09:00&duration=2&location=Main,Nowhere", &body)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body.Date != "2024-06-01" || body.Timezone != "America/Los_Angeles" {
		t.Fatalf("unexpected header fields %q %q", body.Date, body.Timezone)
	}
	if body.Warning != nil {
		t.Fatalf("unexpected warning %+v", body.Warning)
	}
	if body.Window.Start != "09:00 AM" || body.Window.End != "11:00 AM" {
		t.Fatalf("unexpected window %+v", body.Window)
	}
	if len(body.Locations) != 2 || len(body.Tables) != 2 {
		t.Fatalf("expected full tables for both locations, got %v", body.Locations)
	}
	if len(body.CompactView.Locations) != 1 || body.CompactView.Locations[0] != "Main" {
		t.Fatalf("unexpected compact locations %v", body.CompactView.Locations)
	}
	if len(body.UnknownLocations) != 1 || body.UnknownLocations[0] != "Nowhere" {
		t.Fatalf("unexpected unknown locations %v", body.UnknownLocations)
	}
	if len(body.CompactView.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(body.CompactView.Rows))
	}
	row := body.CompactView.Rows[2]
	if row.Time != "10:00 AM" {
		t.Fatalf("unexpected row %q", row.Time)
	}
	if courts, ok := row.Courts["Main"]; !ok || courts == nil || len(courts) != 0 {
		t.Fatalf("expected empty court list at 10:00 AM, got %#v", row.Courts)
	}
}

func TestAvailability_WindowWarning(t *testing.T) {
	srv := newTestServer(t, sampleFeed())

	var body struct {
		Warning *warningItem `json:"warning"`
		Window  windowItem   `json:"window"`
	}
	status := getJSON(t, srv.URL+"/api/v1/availability?start=10:00&end=09:00", &body)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body.Warning == nil || body.Warning.Code != "end_before_start" {
		t.Fatalf("expected end-before-start warning, got %+v", body.Warning)
	}
	if !strings.HasPrefix(body.Warning.Message, "End time cannot be before start time") {
		t.Fatalf("unexpected message %q", body.Warning.Message)
	}
	if body.Window.Start != "06:00 AM" || body.Window.End != "10:00 PM" {
		t.Fatalf("expected fallback window, got %+v", body.Window)
	}
}

func TestAvailability_Errors(t *testing.T) {
	failing := feed.SourceFunc(func(context.Context, time.Time) ([]feed.Reservation, error) {
		return nil, errors.New("upstream 500: stack trace here")
	})
	srv := newTestServer(t, failing)

	var body map[string]string
	if status := getJSON(t, srv.URL+"/api/v1/availability", &body); status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	if body["error"] != FeedErrorMessage {
		t.Fatalf("expected generic message, got %q", body["error"])
	}

	ok := newTestServer(t, sampleFeed())
	if status := getJSON(t, ok.URL+"/api/v1/availability?date=tomorrow", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", status)
	}
	if status := getJSON(t, ok.URL+"/api/v1/availability?date=2025-01-01", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 beyond horizon, got %d", status)
	}

	resp, err := http.Post(ok.URL+"/api/v1/availability", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestLocationsAndDurations(t *testing.T) {
	srv := newTestServer(t, sampleFeed())

	var locs locationsResponse
	if status := getJSON(t, srv.URL+"/api/v1/locations?date=2024-06-01", &locs); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(locs.Locations) != 2 || locs.Locations[0] != "Annex" || locs.Locations[1] != "Main" {
		t.Fatalf("unexpected locations %v", locs.Locations)
	}

	var durs durationsResponse
	if status := getJSON(t, srv.URL+"/api/v1/durations", &durs); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(durs.Durations) != 8 || durs.Durations[0] != 0.5 || durs.Durations[7] != 4 {
		t.Fatalf("unexpected durations %v", durs.Durations)
	}
}

func TestLocationParams(t *testing.T) {
	got := locationParams([]string{"Main, Annex", "", "Court Park"})
	if len(got) != 3 || got[0] != "Main" || got[1] != "Annex" || got[2] != "Court Park" {
		t.Fatalf("unexpected locations %v", got)
	}
}

func TestWarningCode(t *testing.T) {
	cases := map[error]string{
		availability.ErrMissingEnd:          "missing_end",
		availability.ErrEndBeforeStart:      "end_before_start",
		availability.ErrOutsideOpeningHours: "outside_opening_hours",
		availability.ErrInvalidDuration:     "invalid_duration",
		availability.ErrMisaligned:          "misaligned",
		errors.New("other"):                 "invalid_window",
	}
	for reason, want := range cases {
		if got := warningCode(&availability.ValidationError{Reason: reason}); got != want {
			t.Fatalf("%v: expected %q, got %q", reason, want, got)
		}
	}
}
