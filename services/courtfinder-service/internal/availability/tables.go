package availability

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LabelLayout renders slot starts on the wall clock, e.g. "07:00 AM".
const LabelLayout = "03:04 PM"

func Label(t time.Time) string { return t.Format(LabelLayout) }

// Marker is the table cell content for a free slot.
func Marker(t time.Time) string { return "✓ " + Label(t) }

// TableRow is one slot of a location table. Cells line up with the table's
// Courts; an empty cell means the court is reserved in that slot.
type TableRow struct {
	Time  string    `json:"time"`
	Start time.Time `json:"start"`
	Cells []string  `json:"cells"`
}

// LocationTable is the full-day grid for one location.
type LocationTable struct {
	Location string     `json:"location"`
	Courts   []string   `json:"courts"`
	Rows     []TableRow `json:"rows"`

	byStart map[int64]int
}

// FreeCourts returns the courts marked free in the row starting at start, in
// column order. ok is false when the table has no such row. Rows are matched
// by instant, so repeated wall-clock labels on a DST fall-back day stay apart.
func (t LocationTable) FreeCourts(start time.Time) (courts []string, ok bool) {
	idx, ok := t.rowIndex(start)
	if !ok {
		return []string{}, false
	}
	courts = []string{}
	for i, cell := range t.Rows[idx].Cells {
		if cell != "" {
			courts = append(courts, t.Courts[i])
		}
	}
	return courts, true
}

func (t LocationTable) rowIndex(start time.Time) (int, bool) {
	if t.byStart != nil {
		idx, ok := t.byStart[start.UnixNano()]
		return idx, ok
	}
	for i, row := range t.Rows {
		if row.Start.Equal(start) {
			return i, true
		}
	}
	return 0, false
}

// Tables holds one LocationTable per location.
type Tables map[string]LocationTable

// Locations returns the table keys in lexicographic order.
func (t Tables) Locations() []string {
	out := make([]string, 0, len(t))
	for loc := range t {
		out = append(out, loc)
	}
	slices.Sort(out)
	return out
}

// Aggregate lays availability out as one table per location: a row per slot,
// a column per court, and a marker in every cell whose slot is free.
func Aggregate(slots []Slot, avail Availability) Tables {
	out := make(Tables, len(avail))
	for location, courts := range avail {
		names := make([]string, 0, len(courts))
		for court := range courts {
			names = append(names, court)
		}
		slices.SortFunc(names, compareCourts)

		free := make([]map[int64]bool, len(names))
		for i, court := range names {
			set := make(map[int64]bool, len(courts[court]))
			for _, s := range courts[court] {
				set[s.Start.UnixNano()] = true
			}
			free[i] = set
		}

		table := LocationTable{
			Location: location,
			Courts:   names,
			Rows:     make([]TableRow, 0, len(slots)),
			byStart:  make(map[int64]int, len(slots)),
		}
		for _, s := range slots {
			label := Label(s.Start)
			cells := make([]string, len(names))
			for i := range names {
				if free[i][s.Start.UnixNano()] {
					cells[i] = Marker(s.Start)
				}
			}
			table.byStart[s.Start.UnixNano()] = len(table.Rows)
			table.Rows = append(table.Rows, TableRow{Time: label, Start: s.Start, Cells: cells})
		}
		out[location] = table
	}
	return out
}

// compareCourts orders "Court 2" before "Court 10"; labels that do not end in
// a number fall back to plain string order.
func compareCourts(a, b string) int {
	pa, na, okA := splitNumber(a)
	pb, nb, okB := splitNumber(b)
	if okA && okB && pa == pb {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

func splitNumber(s string) (string, int, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
