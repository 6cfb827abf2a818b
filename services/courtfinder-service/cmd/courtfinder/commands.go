package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/availability"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/finder"
)

type finderFactory func() (*finder.Finder, error)

var errSomethingWrong = errors.New("oops, something went wrong")

// userError hides feed failures behind one generic message; the details are
// already in the log.
func userError(err error) error {
	if errors.Is(err, finder.ErrFeedUnavailable) {
		return errSomethingWrong
	}
	return err
}

type queryFlags struct {
	date      string
	start     string
	end       string
	duration  string
	locations []string
	tables    bool
	asJSON    bool
}

func newRootCommand(out io.Writer, newFinder finderFactory) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "courtfinder",
		Short: "Show open court slots for a day",
		Long: `Fetch the day's reservations and print which courts are free in each
half-hour slot, grouped by location.

Examples:
  courtfinder --date 2024-06-01
  courtfinder --start 17:00 --duration 2 --location Main
  courtfinder --start "6:00 PM" --end "9:00 PM" --tables`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := newFinder()
			if err != nil {
				return err
			}
			res, err := f.Find(cmd.Context(), finder.Query{
				Date:      flags.date,
				Start:     flags.start,
				End:       flags.end,
				Duration:  flags.duration,
				Locations: flags.locations,
			})
			if err != nil {
				return userError(err)
			}
			if flags.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res.Compact)
			}
			return renderResult(out, res, flags.tables)
		},
	}
	cmd.Flags().StringVar(&flags.date, "date", "", "court date (YYYY-MM-DD); defaults to today, or tomorrow after the last slot")
	cmd.Flags().StringVar(&flags.start, "start", "", "window start, e.g. 17:00 or \"5:00 PM\"")
	cmd.Flags().StringVar(&flags.end, "end", "", "window end")
	cmd.Flags().StringVar(&flags.duration, "duration", "", "window length in hours (0.5 steps) instead of --end")
	cmd.Flags().StringSliceVar(&flags.locations, "location", nil, "locations to show (repeatable); all when empty")
	cmd.Flags().BoolVar(&flags.tables, "tables", false, "also print the full-day table of every location")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print the compact view as JSON")
	cmd.MarkFlagsMutuallyExclusive("end", "duration")

	cmd.AddCommand(newLocationsCommand(out, newFinder), newDurationsCommand(out, newFinder))
	return cmd
}

func newLocationsCommand(out io.Writer, newFinder finderFactory) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List locations with reservations on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := newFinder()
			if err != nil {
				return err
			}
			res, err := f.Find(cmd.Context(), finder.Query{Date: date})
			if err != nil {
				return userError(err)
			}
			for _, loc := range res.Locations {
				fmt.Fprintln(out, loc)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "court date (YYYY-MM-DD)")
	return cmd
}

func newDurationsCommand(out io.Writer, newFinder finderFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "durations",
		Short: "List the window lengths accepted by --duration",
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := newFinder()
			if err != nil {
				return err
			}
			for _, d := range f.Venue().DurationOptions() {
				fmt.Fprintln(out, strconv.FormatFloat(d.Hours(), 'f', -1, 64))
			}
			return nil
		},
	}
}

func renderResult(out io.Writer, res availability.Result, withTables bool) error {
	fmt.Fprintf(out, "%s  %s - %s\n", res.Date.Format("Mon Jan 2, 2006"),
		availability.Label(res.Window.Start), availability.Label(res.Window.End))
	if res.Warning != nil {
		fmt.Fprintf(out, "warning: %s\n", res.Warning.Message)
	}
	if len(res.UnknownLocations) > 0 {
		fmt.Fprintf(out, "unknown locations: %s\n", strings.Join(res.UnknownLocations, ", "))
	}
	if len(res.Compact.Locations) == 0 {
		fmt.Fprintln(out, "no locations with reservations on this day")
		return nil
	}

	fmt.Fprintln(out)
	if err := renderCompact(out, res.Compact); err != nil {
		return err
	}
	if !withTables {
		return nil
	}
	for _, loc := range res.Locations {
		fmt.Fprintf(out, "\n%s\n", loc)
		if err := renderTable(out, res.Tables[loc]); err != nil {
			return err
		}
	}
	return nil
}

func renderCompact(out io.Writer, view availability.CompactView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\t%s\n", strings.Join(view.Locations, "\t"))
	for _, row := range view.Rows {
		cells := make([]string, 0, len(view.Locations))
		for _, loc := range view.Locations {
			cells = append(cells, courtList(row.Courts[loc]))
		}
		fmt.Fprintf(tw, "%s\t%s\n", row.Time, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func renderTable(out io.Writer, table availability.LocationTable) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\t%s\n", strings.Join(table.Courts, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			if c == "" {
				c = "-"
			}
			cells[i] = c
		}
		fmt.Fprintf(tw, "%s\t%s\n", row.Time, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// courtList shortens "Court 1", "Court 3" to "1, 3".
func courtList(courts []string) string {
	if len(courts) == 0 {
		return "-"
	}
	short := make([]string, len(courts))
	for i, c := range courts {
		short[i] = strings.TrimPrefix(c, "Court ")
	}
	return strings.Join(short, ", ")
}
