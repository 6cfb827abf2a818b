package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/courtfinder/libs/kafkax"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/fetchlog"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic     = "courtfinder.feed.fetched.v1"
	EventFeedFetched = "courtfinder.feed.fetched.v1"
)

// FeedFetched is the payload published after every computation pass.
type FeedFetched struct {
	EventID    string    `json:"event_id"`
	PassID     string    `json:"pass_id"`
	OrgID      string    `json:"org_id"`
	CourtDate  string    `json:"court_date"`
	Records    int       `json:"records"`
	Skipped    int       `json:"skipped"`
	Locations  int       `json:"locations"`
	Cached     bool      `json:"cached"`
	DurationMS int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(brokers, topic string) (*Publisher, error) {
	addrs := kafkax.SplitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, errors.New("events: no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      addrs,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	})
	return &Publisher{writer: writer, topic: topic}, nil
}

var _ fetchlog.Recorder = (*Publisher)(nil)

// Record publishes e keyed by court date so one day's passes stay ordered.
func (p *Publisher) Record(ctx context.Context, e fetchlog.Entry) error {
	evt := FeedFetched{
		EventID:    uuid.NewString(),
		PassID:     e.PassID,
		OrgID:      e.OrgID,
		CourtDate:  e.CourtDate.Format(time.DateOnly),
		Records:    e.Records,
		Skipped:    e.Skipped,
		Locations:  e.Locations,
		Cached:     e.Cached,
		DurationMS: e.Duration.Milliseconds(),
		Status:     string(e.Status),
		Error:      e.Error,
		OccurredAt: e.At.UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.CourtDate),
		Value: payload,
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(evt.EventID)},
			{Key: kafkax.HeaderEventType, Value: []byte(EventFeedFetched)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
