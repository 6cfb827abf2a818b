package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/md-rashed-zaman/courtfinder/libs/kafkax"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/fetchlog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestPublisher_Record(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "pass")
	defer span.End()

	w := &captureWriter{}
	p := &Publisher{writer: w, topic: DefaultTopic}
	err := p.Record(ctx, fetchlog.Entry{
		PassID:    "pass-1",
		OrgID:     "7031",
		CourtDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Records:   4,
		Skipped:   1,
		Duration:  250 * time.Millisecond,
		Status:    fetchlog.StatusOK,
		At:        time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "2024-06-01" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType) != EventFeedFetched {
		t.Fatalf("missing event type header: %+v", msg.Headers)
	}
	if kafkax.HeaderValue(msg.Headers, "traceparent") == "" {
		t.Fatalf("expected trace headers, got %+v", msg.Headers)
	}

	var evt FeedFetched
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if evt.EventID == "" || evt.EventID != kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) {
		t.Fatalf("event id mismatch: %q", evt.EventID)
	}
	if evt.Records != 4 || evt.Skipped != 1 || evt.DurationMS != 250 || evt.Status != "ok" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewPublisher(" , ", ""); err == nil {
		t.Fatal("expected error without brokers")
	}
}
