package settings

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FEED_ORG_ID", "7031")

	s, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Venue.Location.String() != "America/Los_Angeles" || s.Venue.OpeningHour != 6 || s.Venue.ClosingHour != 22 {
		t.Fatalf("unexpected venue %+v", s.Venue)
	}
	if s.Venue.Granularity != 30*time.Minute || s.Venue.MaxDuration != 4*time.Hour || s.Venue.HorizonDays != 30 {
		t.Fatalf("unexpected venue grid %+v", s.Venue)
	}
	if s.Feed.OrgID != "7031" || s.Feed.MaxRetries != 2 || s.Feed.Location != s.Venue.Location {
		t.Fatalf("unexpected feed config %+v", s.Feed)
	}
	if s.CacheTTL != time.Minute {
		t.Fatalf("unexpected cache ttl %s", s.CacheTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FEED_ORG_ID", "42")
	t.Setenv("VENUE_TIMEZONE", "America/New_York")
	t.Setenv("VENUE_OPENING_HOUR", "7")
	t.Setenv("VENUE_CLOSING_HOUR", "21")
	t.Setenv("SLOT_MINUTES", "15")
	t.Setenv("FEED_CACHE_TTL_SECONDS", "5")

	s, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Venue.Location.String() != "America/New_York" || s.Venue.OpeningHour != 7 || s.Venue.ClosingHour != 21 {
		t.Fatalf("unexpected venue %+v", s.Venue)
	}
	if s.Venue.Granularity != 15*time.Minute || s.Venue.DurationStep != 15*time.Minute {
		t.Fatalf("unexpected granularity %+v", s.Venue)
	}
	if s.CacheTTL != 5*time.Second {
		t.Fatalf("unexpected cache ttl %s", s.CacheTTL)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("FEED_ORG_ID", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without FEED_ORG_ID")
	}

	t.Setenv("FEED_ORG_ID", "7031")
	t.Setenv("VENUE_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}

	t.Setenv("VENUE_TIMEZONE", "UTC")
	t.Setenv("VENUE_OPENING_HOUR", "20")
	t.Setenv("VENUE_CLOSING_HOUR", "8")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for reversed opening hours")
	}
}
