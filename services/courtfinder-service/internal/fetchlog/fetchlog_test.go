package fetchlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *memRecorder) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRecorder) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestMulti_FansOutPastFailures(t *testing.T) {
	var failed []string
	failing := RecorderFunc(func(_ context.Context, e Entry) error {
		failed = append(failed, e.PassID)
		return errors.New("db down")
	})
	ok := &memRecorder{}
	m := NewMulti(failing, nil, ok)
	if len(m) != 2 {
		t.Fatalf("expected nil recorders to be dropped, got %d", len(m))
	}

	err := m.Record(context.Background(), Entry{PassID: "p1", Status: StatusOK})
	if err == nil || err.Error() != "db down" {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if ok.len() != 1 || len(failed) != 1 || failed[0] != "p1" {
		t.Fatalf("expected both sinks to see the entry, got %v/%d", failed, ok.len())
	}
}

func TestQueue_DrainsOnShutdown(t *testing.T) {
	rec := &memRecorder{}
	q := NewQueue(rec, 4, nil)

	for i := 0; i < 3; i++ {
		_ = q.Record(context.Background(), Entry{PassID: "p"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue did not stop")
	}
	if rec.len() != 3 {
		t.Fatalf("expected 3 entries written, got %d", rec.len())
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	rec := &memRecorder{}
	q := NewQueue(rec, 1, nil)
	_ = q.Record(context.Background(), Entry{PassID: "a"})
	_ = q.Record(context.Background(), Entry{PassID: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Run(ctx)
	if rec.len() != 1 || rec.entries[0].PassID != "a" {
		t.Fatalf("expected only the first entry, got %+v", rec.entries)
	}
}
