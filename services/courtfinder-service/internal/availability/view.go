package availability

import (
	"slices"
	"time"
)

// CompactRow lists, for one slot of the window, the free courts of every
// selected location. Locations with no free court map to an empty list.
type CompactRow struct {
	Time   string              `json:"time"`
	Start  time.Time           `json:"start"`
	Courts map[string][]string `json:"courts"`
}

type CompactView struct {
	Locations []string     `json:"locations"`
	Rows      []CompactRow `json:"rows"`
}

// BuildCompactView restricts the full-day tables to the slots of w and to the
// requested locations. An empty request selects every location. Requested
// locations with no table are dropped and returned as unknown.
func BuildCompactView(tables Tables, w Window, locations []string, granularity time.Duration) (CompactView, []string) {
	selected, unknown := selectLocations(tables, locations)
	view := CompactView{Locations: selected, Rows: []CompactRow{}}

	bounds := GridBetween(w.Start, w.End, granularity)
	for i := 0; i+1 < len(bounds); i++ {
		row := CompactRow{
			Time:   Label(bounds[i]),
			Start:  bounds[i],
			Courts: make(map[string][]string, len(selected)),
		}
		for _, loc := range selected {
			courts, _ := tables[loc].FreeCourts(bounds[i])
			row.Courts[loc] = courts
		}
		view.Rows = append(view.Rows, row)
	}
	return view, unknown
}

func selectLocations(tables Tables, requested []string) (selected, unknown []string) {
	if len(requested) == 0 {
		return tables.Locations(), nil
	}
	selected = []string{}
	seen := make(map[string]bool, len(requested))
	for _, loc := range requested {
		if seen[loc] {
			continue
		}
		seen[loc] = true
		if _, ok := tables[loc]; ok {
			selected = append(selected, loc)
		} else {
			unknown = append(unknown, loc)
		}
	}
	slices.Sort(selected)
	return selected, unknown
}
