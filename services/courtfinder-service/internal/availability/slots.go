package availability

import "time"

// Slot is one grid cell [Start, End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// Grid returns the slot boundaries opening, opening+g, ..., closing on date
// in loc. A day with opening hours O..C yields (C-O)*60/g + 1 boundaries.
func Grid(date time.Time, opening, closing int, granularity time.Duration, loc *time.Location) []time.Time {
	if loc == nil || closing <= opening {
		return nil
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), opening, 0, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), closing, 0, 0, 0, loc)
	return GridBetween(start, end, granularity)
}

// GridBetween returns start, start+g, ... up to and including end.
func GridBetween(start, end time.Time, granularity time.Duration) []time.Time {
	if granularity <= 0 || end.Before(start) {
		return nil
	}
	var out []time.Time
	for t := start; !t.After(end); t = t.Add(granularity) {
		out = append(out, t)
	}
	return out
}

// Slots pairs consecutive boundaries.
func Slots(boundaries []time.Time) []Slot {
	if len(boundaries) < 2 {
		return nil
	}
	out := make([]Slot, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		out = append(out, Slot{Start: boundaries[i], End: boundaries[i+1]})
	}
	return out
}

// Overlaps reports whether the slot intersects r. Both are half-open, so a
// reservation ending exactly at s.Start (or starting at s.End) does not
// block the slot.
func (s Slot) Overlaps(r ReservedInterval) bool {
	return s.Start.Before(r.End) && r.Start.Before(s.End)
}

// FreeSlots returns the slots that overlap none of reserved, in grid order.
func FreeSlots(slots []Slot, reserved []ReservedInterval) []Slot {
	free := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !overlapsAny(s, reserved) {
			free = append(free, s)
		}
	}
	return free
}

func overlapsAny(s Slot, reserved []ReservedInterval) bool {
	for _, r := range reserved {
		if s.Overlaps(r) {
			return true
		}
	}
	return false
}

// Availability maps location -> court -> free slots. Only courts that appear
// in at least one reservation are present.
type Availability map[string]map[string][]Slot

// Resolve computes per-court free slots over the day's slots.
func Resolve(slots []Slot, intervals []ReservedInterval) Availability {
	byCourt := make(map[string]map[string][]ReservedInterval)
	for _, ri := range intervals {
		courts, ok := byCourt[ri.Location]
		if !ok {
			courts = make(map[string][]ReservedInterval)
			byCourt[ri.Location] = courts
		}
		courts[ri.Court] = append(courts[ri.Court], ri)
	}

	out := make(Availability, len(byCourt))
	for location, courts := range byCourt {
		free := make(map[string][]Slot, len(courts))
		for court, reserved := range courts {
			free[court] = FreeSlots(slots, reserved)
		}
		out[location] = free
	}
	return out
}
