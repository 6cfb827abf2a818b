package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "https://memberschedulers.courtreserve.com/SchedulerApi/ReadExpandedApi"

var (
	ErrMalformedResponse = errors.New("feed: malformed response")
	ErrUnexpectedStatus  = errors.New("feed: unexpected status")
	ErrResponseTooLarge  = errors.New("feed: response too large")
)

// StatusError carries the upstream HTTP status; it matches ErrUnexpectedStatus.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed: upstream returned %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

type ClientConfig struct {
	BaseURL    string
	OrgID      string
	CostTypeID string
	// Location is the venue timezone; the scheduler API is asked for the
	// venue-local calendar day.
	Location       *time.Location
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBodyBytes   int64
	Transport      http.RoundTripper
}

// Client reads reservations from the CourtReserve scheduler API.
type Client struct {
	baseURL        string
	orgID          string
	costTypeID     string
	loc            *time.Location
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBodyBytes   int64
	http           *http.Client
	logger         *slog.Logger
}

var _ Source = (*Client)(nil)

func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.OrgID) == "" {
		return nil, errors.New("feed: org id is required")
	}
	if cfg.Location == nil {
		return nil, errors.New("feed: location is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("feed: invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		orgID:          cfg.OrgID,
		costTypeID:     cfg.CostTypeID,
		loc:            cfg.Location,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBodyBytes:   cfg.MaxBodyBytes,
		http:           &http.Client{Transport: otelhttp.NewTransport(base)},
		logger:         logger,
	}, nil
}

func (c *Client) OrgID() string { return c.orgID }

// Reservations fetches every reservation on the calendar day of date (year,
// month and day are read as-is in the venue timezone). Network failures, 429 and 5xx are retried with exponential backoff;
// other statuses and undecodable bodies fail immediately.
func (c *Client) Reservations(ctx context.Context, date time.Time) ([]Reservation, error) {
	reqURL, err := c.requestURL(date)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = 4 * c.initialBackoff

	attempt := 0
	return backoff.Retry(ctx, func() ([]Reservation, error) {
		attempt++
		return c.fetchOnce(ctx, reqURL)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("feed fetch failed; retrying",
				"err", err,
				"attempt", attempt,
				"retry_in_ms", wait.Milliseconds(),
				"court_date", date.Format(time.DateOnly),
			)
		}),
	)
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string) ([]Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	setBrowserHeaders(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		statusErr := &StatusError{Code: resp.StatusCode}
		if statusErr.retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	body, err := readAllWithLimit(resp.Body, c.maxBodyBytes)
	if err != nil {
		if errors.Is(err, ErrResponseTooLarge) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var payload struct {
		Data *[]Reservation `json:"Data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if payload.Data == nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: missing Data field", ErrMalformedResponse))
	}
	return *payload.Data, nil
}

type kendoDate struct {
	Year  int `json:"Year"`
	Month int `json:"Month"`
	Day   int `json:"Day"`
}

// requestPayload is the jsonData query parameter the scheduler expects. Empty
// scheduler and court selections return every location and court.
type requestPayload struct {
	StartDate                       string    `json:"startDate"`
	OrgID                           string    `json:"orgId"`
	TimeZone                        string    `json:"TimeZone"`
	Date                            string    `json:"Date"`
	KendoDate                       kendoDate `json:"KendoDate"`
	UICulture                       string    `json:"UiCulture"`
	CostTypeID                      string    `json:"CostTypeId"`
	CustomSchedulerID               string    `json:"CustomSchedulerId"`
	ReservationMinInterval          string    `json:"ReservationMinInterval"`
	SelectedCourtIDs                string    `json:"SelectedCourtIds"`
	SelectedInstructorIDs           string    `json:"SelectedInstructorIds"`
	MemberIDs                       string    `json:"MemberIds"`
	MemberFamilyID                  string    `json:"MemberFamilyId"`
	EmbedCodeID                     string    `json:"EmbedCodeId"`
	HideEmbedCodeReservationDetails string    `json:"HideEmbedCodeReservationDetails"`
}

func (c *Client) requestURL(date time.Time) (string, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)

	payload, err := json.Marshal(requestPayload{
		StartDate:                       day.UTC().Format("2006-01-02T15:04:05.000000Z"),
		OrgID:                           c.orgID,
		TimeZone:                        c.loc.String(),
		Date:                            day.Format("Mon, 02 Jan 2006 15:04:05") + " GMT",
		KendoDate:                       kendoDate{Year: day.Year(), Month: int(day.Month()), Day: day.Day()},
		UICulture:                       "en-US",
		CostTypeID:                      c.costTypeID,
		ReservationMinInterval:          strconv.Itoa(60),
		HideEmbedCodeReservationDetails: "True",
	})
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("id", c.orgID)
	q.Set("uiCulture", "en-US")
	q.Set("sort", "")
	q.Set("group", "")
	q.Set("filter", "")
	q.Set("jsonData", string(payload))
	return c.baseURL + "?" + q.Encode(), nil
}

func setBrowserHeaders(h http.Header) {
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Origin", "https://app.courtreserve.com")
	h.Set("Referer", "https://app.courtreserve.com/")
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-site")
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
}

func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: limit + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, limit)
	}
	return data, nil
}
