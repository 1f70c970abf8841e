package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maxmartens/k2-creek/metrics"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_Exhausts(t *testing.T) {
	calls := 0
	cause := errors.New("down")
	err := Retry(t.Context(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want cause in chain", err)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_PermanentStops(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := Retry(t.Context(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return Permanent(cause)
	})
	if !errors.Is(err, cause) || !strings.Contains(err.Error(), "non-retriable") {
		t.Fatalf("error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err := Retry(ctx, 3, time.Hour, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

type stubAdapter struct {
	err    error
	events []*CardReadEvent
	closed bool
}

func (s *stubAdapter) Publish(_ context.Context, e *CardReadEvent) error {
	s.events = append(s.events, e)
	return s.err
}

func (s *stubAdapter) Close() error {
	s.closed = true
	return nil
}

func TestInstrumented_RecordsOutcome(t *testing.T) {
	inner := &stubAdapter{}
	collector := metrics.NewCollector("run-1", "", "webhook")
	a := NewInstrumented(inner, collector)

	if err := a.Publish(t.Context(), &CardReadEvent{RunID: "run-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	inner.err = errors.New("boom")
	if err := a.Publish(t.Context(), &CardReadEvent{RunID: "run-1"}); err == nil {
		t.Fatal("expected error")
	}
	if err := a.Close(); err != nil || !inner.closed {
		t.Fatalf("Close: err=%v closed=%v", err, inner.closed)
	}

	s := collector.Snapshot()
	if s.PublishSuccess != 1 || s.PublishFailure != 1 {
		t.Errorf("PublishSuccess=%d PublishFailure=%d", s.PublishSuccess, s.PublishFailure)
	}
}
