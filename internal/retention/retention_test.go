package retention

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobalert/internal/model"
	"github.com/amishk599/jobalert/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupRemovesStaleAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "retention.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer s.Close()

	now := time.Now()
	old := model.Posting{Title: "Old", Organization: "Acme", Category: model.CategoryJob, Mode: model.ModeRemote, Topic: "DevOps", Source: "LinkedIn"}
	fresh := model.Posting{Title: "Fresh", Organization: "Acme", Category: model.CategoryJob, Mode: model.ModeRemote, Topic: "DevOps", Source: "LinkedIn"}
	if _, err := s.UpsertPostings(ctx, []model.Posting{old}, now.Add(-10*24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertPostings(ctx, []model.Posting{fresh}, now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	c := NewCleaner(s, nil, discardLogger())
	c.now = func() time.Time { return now }

	n, err := c.Cleanup(ctx, 7)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row removed, got %d", n)
	}

	n, err = c.Cleanup(ctx, 7)
	if err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second cleanup to remove nothing, got %d", n)
	}

	left, err := s.RecentPostings(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Title != "Fresh" {
		t.Errorf("unexpected remaining postings: %+v", left)
	}
}

func TestCleanupRejectsNonPositiveDays(t *testing.T) {
	c := NewCleaner(nil, nil, discardLogger())
	for _, d := range []int{0, -3} {
		if _, err := c.Cleanup(context.Background(), d); err == nil {
			t.Errorf("Cleanup(%d) expected error", d)
		}
	}
}
