package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/courtfinder/libs/httpx"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/availability"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/finder"
)

// FeedErrorMessage is the only text shown to users when the feed fails.
const FeedErrorMessage = "oops, something went wrong"

type AvailabilityHandler struct {
	finder *finder.Finder
	logger *slog.Logger
}

func NewAvailabilityHandler(f *finder.Finder, logger *slog.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityHandler{finder: f, logger: logger}
}

func (h *AvailabilityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability", h.Availability)
	mux.HandleFunc("/api/v1/locations", h.Locations)
	mux.HandleFunc("/api/v1/durations", h.Durations)
}

type windowItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type warningItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type availabilityResponse struct {
	Date             string                       `json:"date"`
	Timezone         string                       `json:"timezone"`
	Window           windowItem                   `json:"window"`
	Warning          *warningItem                 `json:"warning"`
	Locations        []string                     `json:"locations"`
	CompactView      availability.CompactView     `json:"compact_view"`
	Tables           []availability.LocationTable `json:"tables"`
	SkippedRecords   []availability.Skipped       `json:"skipped_records"`
	UnknownLocations []string                     `json:"unknown_locations"`
}

type locationsResponse struct {
	Date      string   `json:"date"`
	Locations []string `json:"locations"`
}

type durationsResponse struct {
	Durations []float64 `json:"durations"`
}

func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	res, err := h.finder.Find(r.Context(), finder.Query{
		Date:      q.Get("date"),
		Start:     q.Get("start"),
		End:       q.Get("end"),
		Duration:  q.Get("duration"),
		Locations: locationParams(q["location"]),
	})
	if err != nil {
		h.writeFindError(w, err)
		return
	}

	resp := availabilityResponse{
		Date:     res.Date.Format(time.DateOnly),
		Timezone: h.finder.Venue().Location.String(),
		Window: windowItem{
			StartTime: res.Window.Start.Format(time.RFC3339),
			EndTime:   res.Window.End.Format(time.RFC3339),
			Start:     availability.Label(res.Window.Start),
			End:       availability.Label(res.Window.End),
		},
		Locations:        nonNil(res.Locations),
		CompactView:      res.Compact,
		Tables:           make([]availability.LocationTable, 0, len(res.Tables)),
		SkippedRecords:   res.Skipped,
		UnknownLocations: nonNil(res.UnknownLocations),
	}
	if res.Warning != nil {
		resp.Warning = &warningItem{Code: warningCode(res.Warning), Message: res.Warning.Message}
	}
	if resp.SkippedRecords == nil {
		resp.SkippedRecords = []availability.Skipped{}
	}
	for _, loc := range res.Locations {
		resp.Tables = append(resp.Tables, res.Tables[loc])
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) Locations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := h.finder.Find(r.Context(), finder.Query{Date: r.URL.Query().Get("date")})
	if err != nil {
		h.writeFindError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, locationsResponse{
		Date:      res.Date.Format(time.DateOnly),
		Locations: nonNil(res.Locations),
	})
}

func (h *AvailabilityHandler) Durations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	opts := h.finder.Venue().DurationOptions()
	resp := durationsResponse{Durations: make([]float64, 0, len(opts))}
	for _, d := range opts {
		resp.Durations = append(resp.Durations, d.Hours())
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) writeFindError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, finder.ErrInvalidQuery), errors.Is(err, availability.ErrDateOutOfRange):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, finder.ErrFeedUnavailable):
		httpx.WriteError(w, http.StatusBadGateway, FeedErrorMessage)
	default:
		h.logger.Error("availability request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, FeedErrorMessage)
	}
}

// locationParams accepts repeated and comma-separated location values.
func locationParams(values []string) []string {
	var out []string
	for _, v := range values {
		for _, loc := range strings.Split(v, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				out = append(out, loc)
			}
		}
	}
	return out
}

func warningCode(v *availability.ValidationError) string {
	switch {
	case errors.Is(v, availability.ErrMissingEnd):
		return "missing_end"
	case errors.Is(v, availability.ErrEndBeforeStart):
		return "end_before_start"
	case errors.Is(v, availability.ErrOutsideOpeningHours):
		return "outside_opening_hours"
	case errors.Is(v, availability.ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(v, availability.ErrMisaligned):
		return "misaligned"
	default:
		return "invalid_window"
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
