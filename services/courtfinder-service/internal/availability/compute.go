package availability

import (
	"time"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
)

// Request drives one computation pass. A nil Window means the full opening
// window; empty Locations means every location.
type Request struct {
	Date      time.Time
	Window    *WindowSpec
	Locations []string
}

type Result struct {
	Date   time.Time
	Window Window
	Tables Tables
	// Locations is every location that has a table, sorted.
	Locations        []string
	Compact          CompactView
	Warning          *ValidationError
	Skipped          []Skipped
	UnknownLocations []string
	Reservations     int
}

// ComputeViews runs the whole pipeline over one day of feed records:
// normalize, grid, resolve, aggregate, then the compact view. An invalid
// window is reported in Warning and the full opening window is used instead.
// It performs no I/O.
func ComputeViews(v Venue, req Request, records []feed.Reservation) Result {
	intervals, skipped := NormalizeAll(records, v.Location)
	slots := v.Slots(req.Date)
	tables := Aggregate(slots, Resolve(slots, intervals))

	window := Window{Start: v.Opening(req.Date), End: v.Closing(req.Date)}
	var warning *ValidationError
	if req.Window != nil {
		w, verr := v.ResolveWindow(req.Date, *req.Window)
		if verr != nil {
			warning = verr
		} else {
			window = w
		}
	}

	compact, unknown := BuildCompactView(tables, window, req.Locations, v.Granularity)
	return Result{
		Date:             v.At(req.Date, 0, 0),
		Window:           window,
		Tables:           tables,
		Locations:        tables.Locations(),
		Compact:          compact,
		Warning:          warning,
		Skipped:          skipped,
		UnknownLocations: unknown,
		Reservations:     len(intervals),
	}
}
