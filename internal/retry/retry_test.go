package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobalert/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockHarvester calls a function on each invocation, tracking call count.
type mockHarvester struct {
	calls int
	fn    func(attempt int) ([]model.Posting, error)
}

func (m *mockHarvester) Fetch(_ context.Context, _ model.Category, _ model.Mode, _ string) ([]model.Posting, error) {
	m.calls++
	return m.fn(m.calls)
}

func fastPolicy(attempts uint) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxJitter: time.Millisecond}
}

func fetch(h *Harvester) ([]model.Posting, error) {
	return h.Fetch(context.Background(), model.CategoryJob, model.ModeRemote, "DevOps")
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockHarvester{fn: func(_ int) ([]model.Posting, error) {
		return []model.Posting{{Title: "Engineer"}}, nil
	}}

	got, err := fetch(NewHarvester(mock, "test", fastPolicy(3), discardLogger()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected postings: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx(t *testing.T) {
	mock := &mockHarvester{fn: func(attempt int) ([]model.Posting, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 503}
		}
		return []model.Posting{{Title: "Engineer"}}, nil
	}}

	got, err := fetch(NewHarvester(mock, "test", fastPolicy(3), discardLogger()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || mock.calls != 2 {
		t.Fatalf("expected success on 2nd call, got %d postings after %d calls", len(got), mock.calls)
	}
}

func TestRetry_GivesUpAfterAttempts(t *testing.T) {
	mock := &mockHarvester{fn: func(_ int) ([]model.Posting, error) {
		return nil, errors.New("connection reset")
	}}

	_, err := fetch(NewHarvester(mock, "test", fastPolicy(3), discardLogger()))
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetry_NoRetryOn404(t *testing.T) {
	mock := &mockHarvester{fn: func(_ int) ([]model.Posting, error) {
		return nil, &model.HTTPError{StatusCode: 404}
	}}

	_, err := fetch(NewHarvester(mock, "test", fastPolicy(3), discardLogger()))
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call for a permanent error, got %d", mock.calls)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	mock := &mockHarvester{fn: func(attempt int) ([]model.Posting, error) {
		if attempt == 1 {
			return nil, &model.HTTPError{StatusCode: 429, RetryAfter: 50 * time.Millisecond}
		}
		return nil, nil
	}}

	start := time.Now()
	if _, err := fetch(NewHarvester(mock, "test", fastPolicy(2), discardLogger())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected to wait out Retry-After, took %v", elapsed)
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	mock := &mockHarvester{fn: func(_ int) ([]model.Posting, error) {
		return nil, errors.New("timeout")
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHarvester(mock, "test", Policy{Attempts: 5, Delay: time.Hour}, discardLogger())
	start := time.Now()
	if _, err := h.Fetch(ctx, model.CategoryJob, model.ModeRemote, "DevOps"); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled retry did not return promptly")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{&model.HTTPError{StatusCode: 429}, true},
		{&model.HTTPError{StatusCode: 500}, true},
		{&model.HTTPError{StatusCode: 502}, true},
		{&model.HTTPError{StatusCode: 400}, false},
		{&model.HTTPError{StatusCode: 403}, false},
		{fmt.Errorf("parse: %w", model.ErrInvalidPosting), false},
		{errors.New("dial tcp: connection refused"), true},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

type flakyGateway struct {
	calls int
	fail  int
}

func (g *flakyGateway) Send(_ context.Context, _ int64, _ model.Message) error {
	g.calls++
	if g.calls <= g.fail {
		return &model.HTTPError{StatusCode: 502}
	}
	return nil
}

func TestGateway_RetriesTransientSendFailure(t *testing.T) {
	inner := &flakyGateway{fail: 1}
	g := NewGateway(inner, fastPolicy(3), discardLogger())

	if err := g.Send(context.Background(), 1, model.Message{Kind: model.MessageSummary, Count: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}
