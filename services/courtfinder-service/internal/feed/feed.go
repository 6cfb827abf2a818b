package feed

import (
	"context"
	"time"
)

// Reservation is one record of the scheduler feed as delivered: a display
// label such as "Main 3" and UTC timestamps like "2024-06-01T17:00:00.000Z".
type Reservation struct {
	CourtLabel string `json:"CourtLabel"`
	Start      string `json:"Start"`
	End        string `json:"End"`
}

// Source returns the reservations for one venue-local calendar day.
// Implementations must return an empty (non-error) result for a day with no
// bookings.
type Source interface {
	Reservations(ctx context.Context, date time.Time) ([]Reservation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, date time.Time) ([]Reservation, error)

func (f SourceFunc) Reservations(ctx context.Context, date time.Time) ([]Reservation, error) {
	return f(ctx, date)
}
