package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mark("a"), nil, mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "abc-123" || rw.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected caller id to be kept, got %q", seen)
	}

	reqBad := httptest.NewRequest(http.MethodGet, "/", nil)
	reqBad.Header.Set(RequestIDHeader, "has space")
	h.ServeHTTP(httptest.NewRecorder(), reqBad)
	if seen == "has space" || len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		codes = append(codes, rw.Code)
		if rw.Code == http.StatusTooManyRequests && rw.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != 429 {
		t.Fatalf("unexpected codes: %v", codes)
	}

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", rw.Code)
	}
	if len(rl.visitors) != 1 {
		t.Fatalf("expected expired visitors swept, got %d", len(rl.visitors))
	}
}

func TestWithCORS(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://courts.example"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/availability", nil)
	req.Header.Set("Origin", "https://COURTS.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://COURTS.example" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}

	reqOther := httptest.NewRequest(http.MethodGet, "/", nil)
	reqOther.Header.Set("Origin", "https://evil.example")
	rwOther := httptest.NewRecorder()
	h.ServeHTTP(rwOther, reqOther)
	if rwOther.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers for unknown origin")
	}
}

func TestAccessLogWarnsOnServerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := WithAccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusBadGateway, "oops")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/availability?date=2024-06-01", nil))

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"status":502`) {
		t.Fatalf("unexpected access log: %s", out)
	}
}

func TestWithRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}), WithRequestID, WithRecover(logger))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "handler panic") || !strings.Contains(buf.String(), "nil map write") {
		t.Fatalf("expected panic to be logged: %s", buf.String())
	}
}
