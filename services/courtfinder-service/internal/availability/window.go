package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidClock        = errors.New("invalid time of day")
	ErrMissingEnd          = errors.New("missing end or duration")
	ErrEndBeforeStart      = errors.New("end before start")
	ErrOutsideOpeningHours = errors.New("outside opening hours")
	ErrInvalidDuration     = errors.New("duration not offered")
	ErrMisaligned          = errors.New("time not on the slot grid")
)

// Clock is a wall-clock time of day in the venue timezone.
type Clock struct {
	Hour   int
	Minute int
}

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3:04 pm", "3:04pm"}

// ParseClock accepts "15:04" and "3:04 PM" forms. "24:00" is accepted so a
// window can end at a midnight close.
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	if s == "24:00" {
		return Clock{Hour: 24}, nil
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On places the clock on date in the venue timezone.
func (c Clock) On(v Venue, date time.Time) time.Time { return v.At(date, c.Hour, c.Minute) }

// EndSpec says how a window ends: at an explicit wall-clock time or after a
// fixed duration.
type EndSpec interface {
	end(v Venue, date, start time.Time) time.Time
}

type ExplicitEnd struct {
	At Clock
}

func (e ExplicitEnd) end(v Venue, date, _ time.Time) time.Time { return e.At.On(v, date) }

type Duration struct {
	Length time.Duration
}

func (d Duration) end(_ Venue, _, start time.Time) time.Time { return start.Add(d.Length) }

// WindowSpec is a user-chosen time range on the court date.
type WindowSpec struct {
	Start Clock
	End   EndSpec
}

// Window is a resolved [Start, End) range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Length() time.Duration { return w.End.Sub(w.Start) }

// ValidationError is a user-facing rejection of a window. Reason is one of
// the Err* sentinels above.
type ValidationError struct {
	Reason  error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Reason }

// ResolveWindow turns the requested window into absolute times on date and checks it against
// the venue's hours, grid and duration menu.
func (v Venue) ResolveWindow(date time.Time, spec WindowSpec) (Window, *ValidationError) {
	if spec.End == nil {
		return Window{}, &ValidationError{Reason: ErrMissingEnd, Message: "Please select an end time or a duration."}
	}
	if d, ok := spec.End.(Duration); ok && !v.offers(d.Length) {
		return Window{}, &ValidationError{
			Reason:  ErrInvalidDuration,
			Message: fmt.Sprintf("Please select a duration between %s and %s hours.", hours(v.DurationStep), hours(v.MaxDuration)),
		}
	}

	start := spec.Start.On(v, date)
	w := Window{Start: start, End: spec.End.end(v, date, start)}

	if w.End.Before(w.Start) {
		return Window{}, &ValidationError{
			Reason:  ErrEndBeforeStart,
			Message: "End time cannot be before start time. Please select a valid end time.",
		}
	}
	opening, closing := v.Opening(date), v.Closing(date)
	if w.Start.Before(opening) || w.End.After(closing) {
		return Window{}, &ValidationError{
			Reason:  ErrOutsideOpeningHours,
			Message: fmt.Sprintf("Please select times/duration that falls between %s and %s", Label(opening), Label(closing)),
		}
	}
	if w.Start.Sub(opening)%v.Granularity != 0 || w.End.Sub(opening)%v.Granularity != 0 {
		return Window{}, &ValidationError{
			Reason:  ErrMisaligned,
			Message: fmt.Sprintf("Please select times on the %d-minute grid.", int(v.Granularity.Minutes())),
		}
	}
	return w, nil
}

func (v Venue) offers(d time.Duration) bool {
	for _, opt := range v.DurationOptions() {
		if opt == d {
			return true
		}
	}
	return false
}

func hours(d time.Duration) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", d.Hours()), "0"), ".")
}
