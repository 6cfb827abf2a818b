package availability

import (
	"errors"
	"fmt"
	"time"
)

var ErrDateOutOfRange = errors.New("date is beyond the booking horizon")

// Venue holds the fixed facts every computation pass is relative to. Dates
// handed to Venue methods are calendar dates: only their year, month and day
// are read, and times are built in the venue timezone.
type Venue struct {
	Location     *time.Location
	OpeningHour  int
	ClosingHour  int
	Granularity  time.Duration
	MaxDuration  time.Duration
	DurationStep time.Duration
	HorizonDays  int
}

func DefaultVenue(loc *time.Location) Venue {
	return Venue{
		Location:     loc,
		OpeningHour:  6,
		ClosingHour:  22,
		Granularity:  30 * time.Minute,
		MaxDuration:  4 * time.Hour,
		DurationStep: 30 * time.Minute,
		HorizonDays:  30,
	}
}

func (v Venue) Validate() error {
	if v.Location == nil {
		return errors.New("venue timezone is required")
	}
	if v.OpeningHour < 0 || v.ClosingHour > 24 || v.OpeningHour >= v.ClosingHour {
		return fmt.Errorf("invalid opening hours %d-%d", v.OpeningHour, v.ClosingHour)
	}
	if v.Granularity <= 0 || time.Hour%v.Granularity != 0 {
		return fmt.Errorf("slot granularity %s must divide one hour", v.Granularity)
	}
	if v.DurationStep <= 0 || v.DurationStep%v.Granularity != 0 {
		return fmt.Errorf("duration step %s must be a multiple of the slot granularity", v.DurationStep)
	}
	if v.MaxDuration < v.DurationStep {
		return fmt.Errorf("max duration %s is shorter than one step", v.MaxDuration)
	}
	if v.HorizonDays < 0 {
		return errors.New("horizon must not be negative")
	}
	return nil
}

// At returns date@hour:minute in the venue timezone.
func (v Venue) At(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, v.Location)
}

func (v Venue) Opening(date time.Time) time.Time { return v.At(date, v.OpeningHour, 0) }

func (v Venue) Closing(date time.Time) time.Time { return v.At(date, v.ClosingHour, 0) }

// Grid is the full-day slot boundary sequence for date.
func (v Venue) Grid(date time.Time) []time.Time {
	return Grid(date, v.OpeningHour, v.ClosingHour, v.Granularity, v.Location)
}

func (v Venue) Slots(date time.Time) []Slot { return Slots(v.Grid(date)) }

// DurationOptions is the menu offered in duration mode: DurationStep,
// 2*DurationStep, ... up to MaxDuration.
func (v Venue) DurationOptions() []time.Duration {
	if v.DurationStep <= 0 {
		return nil
	}
	var out []time.Duration
	for d := v.DurationStep; d <= v.MaxDuration; d += v.DurationStep {
		out = append(out, d)
	}
	return out
}

// DefaultDate is today in the venue timezone, or tomorrow once the last slot
// of the day has started.
func (v Venue) DefaultDate(now time.Time) time.Time {
	local := now.In(v.Location)
	lastStart := v.Closing(local).Add(-v.Granularity)
	day := v.At(local, 0, 0)
	if local.After(lastStart) {
		return day.AddDate(0, 0, 1)
	}
	return day
}

// CheckDate rejects dates further out than the booking horizon.
func (v Venue) CheckDate(date, now time.Time) error {
	latest := v.DefaultDate(now).AddDate(0, 0, v.HorizonDays)
	if v.At(date, 0, 0).After(latest) {
		return fmt.Errorf("%w: %s is after %s", ErrDateOutOfRange, date.Format(time.DateOnly), latest.Format(time.DateOnly))
	}
	return nil
}
