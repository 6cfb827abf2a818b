package settings

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/courtfinder/libs/config"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/availability"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feedcache"
)

// Settings is the environment shared by the service and the CLI.
type Settings struct {
	Venue     availability.Venue
	Feed      feed.ClientConfig
	CacheTTL  time.Duration
	CacheSize int
}

func Load() (Settings, error) {
	tz := config.String("VENUE_TIMEZONE", "America/Los_Angeles")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Settings{}, fmt.Errorf("VENUE_TIMEZONE: %w", err)
	}

	venue := availability.DefaultVenue(loc)
	if venue.OpeningHour, err = config.Int("VENUE_OPENING_HOUR", venue.OpeningHour, 0, 23); err != nil {
		return Settings{}, err
	}
	if venue.ClosingHour, err = config.Int("VENUE_CLOSING_HOUR", venue.ClosingHour, 1, 24); err != nil {
		return Settings{}, err
	}
	slotMinutes, err := config.Int("SLOT_MINUTES", int(venue.Granularity/time.Minute), 1, 60)
	if err != nil {
		return Settings{}, err
	}
	venue.Granularity = time.Duration(slotMinutes) * time.Minute
	venue.DurationStep = venue.Granularity
	maxMinutes, err := config.Int("MAX_DURATION_MINUTES", int(venue.MaxDuration/time.Minute), 1, 24*60)
	if err != nil {
		return Settings{}, err
	}
	venue.MaxDuration = time.Duration(maxMinutes) * time.Minute
	if venue.HorizonDays, err = config.Int("DATE_HORIZON_DAYS", venue.HorizonDays, 0, 365); err != nil {
		return Settings{}, err
	}
	if err := venue.Validate(); err != nil {
		return Settings{}, err
	}

	orgID, err := config.RequiredString("FEED_ORG_ID")
	if err != nil {
		return Settings{}, err
	}
	retries, err := config.Int("FEED_MAX_RETRIES", 2, 0, 10)
	if err != nil {
		return Settings{}, err
	}
	cacheSize, err := config.Int("FEED_CACHE_SIZE", 64, 1, 100000)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Venue: venue,
		Feed: feed.ClientConfig{
			BaseURL:        config.String("FEED_URL", feed.DefaultBaseURL),
			OrgID:          orgID,
			CostTypeID:     config.String("FEED_COST_TYPE_ID", ""),
			Location:       loc,
			Timeout:        config.Duration("FEED_TIMEOUT_SECONDS", 10*time.Second, time.Second),
			MaxRetries:     retries,
			InitialBackoff: config.Duration("FEED_BACKOFF_MILLIS", 500*time.Millisecond, time.Millisecond),
		},
		CacheTTL:  config.Duration("FEED_CACHE_TTL_SECONDS", feedcache.DefaultTTL, time.Second),
		CacheSize: cacheSize,
	}, nil
}
