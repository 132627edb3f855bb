package matching

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobalert/internal/model"
	"github.com/amishk599/jobalert/internal/store"
)

func TestAggregate(t *testing.T) {
	subs := []model.Subscriber{
		{ID: 1, Category: model.CategoryJob, Mode: model.ModeRemote, Topics: []string{"A", "B"}, Active: true},
		{ID: 2, Category: model.CategoryJob, Mode: model.ModeRemote, Topics: []string{"A"}, Active: true},
		{ID: 3, Category: model.CategoryInternship, Mode: model.ModeOnsite, Topics: []string{"C"}, Active: true},
		{ID: 4, Category: model.CategoryJob, Mode: model.ModeOnsite, Topics: []string{"D"}, Active: false},
	}

	got := Aggregate(subs)

	require.Len(t, got, 2)
	assert.Equal(t, model.Combination{Category: model.CategoryInternship, Mode: model.ModeOnsite, Topics: []string{"C"}}, got[0])
	assert.Equal(t, model.Combination{Category: model.CategoryJob, Mode: model.ModeRemote, Topics: []string{"A", "B"}}, got[1])
}

func TestEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sub := model.Subscriber{Category: model.CategoryJob, Mode: model.ModeRemote, Topics: []string{"DevOps"}}
	base := model.Posting{Category: model.CategoryJob, Mode: model.ModeHybrid, Topic: "DevOps", AcquiredAt: now.Add(-time.Hour)}

	tests := []struct {
		name   string
		mutate func(p *model.Posting)
		want   bool
	}{
		{"hybrid posting matches remote subscriber", func(p *model.Posting) {}, true},
		{"exact mode", func(p *model.Posting) { p.Mode = model.ModeRemote }, true},
		{"mode mismatch", func(p *model.Posting) { p.Mode = model.ModeOnsite }, false},
		{"category mismatch", func(p *model.Posting) { p.Category = model.CategoryInternship }, false},
		{"topic not followed", func(p *model.Posting) { p.Topic = "iOS Development" }, false},
		{"acquired 30 hours ago", func(p *model.Posting) { p.AcquiredAt = now.Add(-30 * time.Hour) }, false},
		{"acquired exactly at the window edge", func(p *model.Posting) { p.AcquiredAt = now.Add(-24 * time.Hour) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			assert.Equal(t, tt.want, Eligible(sub, p, now, DefaultLookback))
		})
	}
}

func TestEngineAgainstStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.UpsertSubscriber(ctx, model.Subscriber{
		ID: 10, Category: model.CategoryJob, Mode: model.ModeRemote, Topics: []string{"DevOps"}, Active: true,
	}))

	fresh := model.Posting{Title: "SRE", Organization: "Acme", Category: model.CategoryJob, Mode: model.ModeHybrid, Topic: "DevOps", Source: "LinkedIn"}
	stale := model.Posting{Title: "Old SRE", Organization: "Acme", Category: model.CategoryJob, Mode: model.ModeRemote, Topic: "DevOps", Source: "LinkedIn"}
	_, err = s.UpsertPostings(ctx, []model.Posting{fresh}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.UpsertPostings(ctx, []model.Posting{stale}, time.Now().Add(-30*time.Hour))
	require.NoError(t, err)

	e := NewEngine(s, 24*time.Hour)
	got, err := e.EligiblePostings(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SRE", got[0].Title)

	combos, err := e.DistinctCombinations(ctx)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, []string{"DevOps"}, combos[0].Topics)
}

func TestEngineUsesInjectedClock(t *testing.T) {
	var gotSince time.Time
	ledger := ledgerFunc(func(_ context.Context, _ int64, _ int, since time.Time, wildcard model.Mode) ([]model.Posting, error) {
		gotSince = since
		assert.Equal(t, model.WildcardMode, wildcard)
		return nil, nil
	})
	e := NewEngine(ledger, 6*time.Hour)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	_, err := e.EligiblePostings(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-6*time.Hour), gotSince)
}

type ledgerFunc func(ctx context.Context, subscriberID int64, limit int, since time.Time, wildcard model.Mode) ([]model.Posting, error)

func (f ledgerFunc) DistinctCombinations(context.Context) ([]model.Combination, error) { return nil, nil }

func (f ledgerFunc) EligiblePostings(ctx context.Context, subscriberID int64, limit int, since time.Time, wildcard model.Mode) ([]model.Posting, error) {
	return f(ctx, subscriberID, limit, since, wildcard)
}
