package harvester

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobalert/internal/filter"
	"github.com/amishk599/jobalert/internal/model"
)

const leverPayload = `[
	{
		"id": "ff7ef527-b0d3-4c44-836a-8d6b58ac321e",
		"text": "Platform Engineer",
		"descriptionPlain": "Build  the platform.",
		"categories": {
			"team": "Engineering",
			"location": "San Francisco, CA",
			"commitment": "Full-time",
			"allLocations": ["San Francisco, CA", "Bengaluru"]
		},
		"createdAt": 1769784074110,
		"workplaceType": "hybrid",
		"hostedUrl": "https://jobs.lever.co/acme/ff7ef527"
	},
	{
		"id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		"text": "Infrastructure Engineer",
		"descriptionPlain": "Keep it running.",
		"categories": {
			"location": "Remote",
			"commitment": "Summer Intern"
		},
		"createdAt": 1769870474110,
		"workplaceType": "remote",
		"hostedUrl": "https://jobs.lever.co/acme/a1b2c3d4"
	}
]`

const ashbyPayload = `{
	"apiVersion": "1",
	"jobs": [
		{
			"title": "DevOps Engineer",
			"location": "Remote, US",
			"jobUrl": "https://jobs.ashbyhq.com/acme/abc-123",
			"publishedAt": "2026-02-13T10:00:00Z",
			"isListed": true,
			"isRemote": true,
			"employmentType": "FullTime"
		},
		{
			"title": "SRE",
			"location": "NYC",
			"jobUrl": "https://jobs.ashbyhq.com/acme/ghi-789",
			"publishedAt": "2026-02-13T12:00:00Z",
			"isListed": false
		},
		{
			"title": "Infrastructure Intern",
			"location": "Berlin",
			"jobUrl": "https://jobs.ashbyhq.com/acme/def-456",
			"publishedAt": "2026-02-14T11:30:00Z",
			"isListed": true,
			"workplaceType": "OnSite",
			"employmentType": "Intern"
		}
	]
}`

func newBoardServer(t *testing.T, wantPath, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLeverFetch_ClassifiesAndFilters(t *testing.T) {
	srv := newBoardServer(t, "/acme", leverPayload)
	l := NewLever(srv.URL, []string{"acme"}, filter.NewTopicFilter(nil, nil), 10, srv.Client())

	// Hybrid is the wildcard: the hybrid job matches a Remote request too.
	jobs, err := l.Fetch(context.Background(), model.CategoryJob, model.ModeRemote, "DevOps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Platform Engineer" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
	p := jobs[0]
	if p.Mode != model.ModeHybrid || p.Location != "San Francisco, CA, Bengaluru" {
		t.Errorf("unexpected mode/location: %s / %s", p.Mode, p.Location)
	}
	if p.Organization != "acme" || p.Source != "Lever" || p.Description != "Build the platform." {
		t.Errorf("unexpected posting: %+v", p)
	}
	if p.Freshness != "2026-01-30" {
		t.Errorf("Freshness = %q, want 2026-01-30", p.Freshness)
	}

	interns, err := l.Fetch(context.Background(), model.CategoryInternship, model.ModeRemote, "DevOps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(interns) != 1 || interns[0].Title != "Infrastructure Engineer" {
		t.Fatalf("commitment should mark the internship: %+v", interns)
	}
}

func TestAshbyFetch_SkipsUnlisted(t *testing.T) {
	srv := newBoardServer(t, "/acme", ashbyPayload)
	a := NewAshby(srv.URL, []string{"acme"}, filter.NewTopicFilter(nil, nil), 10, srv.Client())

	jobs, err := a.Fetch(context.Background(), model.CategoryJob, model.ModeRemote, "DevOps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "DevOps Engineer" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
	if jobs[0].Freshness != "2026-02-13" || jobs[0].Source != "Ashby" {
		t.Errorf("unexpected posting: %+v", jobs[0])
	}

	interns, err := a.Fetch(context.Background(), model.CategoryInternship, model.ModeOnsite, "DevOps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(interns) != 1 || interns[0].Mode != model.ModeOnsite {
		t.Fatalf("unexpected interns: %+v", interns)
	}
}

func TestGemFetch_FallsBackToHTMLContent(t *testing.T) {
	payload := `[
		{
			"id": "abc-123",
			"title": "Frontend Intern",
			"location": {"name": "Remote, India"},
			"absolute_url": "https://jobs.gem.com/retool/jobs/abc-123",
			"first_published_at": "2026-02-10T09:00:00Z",
			"content": "<p>Ship <b>React</b> screens.</p>"
		},
		{
			"id": "def-456",
			"title": "Backend Engineer",
			"location": {"name": "Remote, US"},
			"absolute_url": "https://jobs.gem.com/retool/jobs/def-456",
			"first_published_at": "2026-02-11T14:00:00Z"
		}
	]`
	srv := newBoardServer(t, "/retool/job_posts/", payload)
	g := NewGem(srv.URL, []string{"retool"}, filter.NewTopicFilter(nil, nil), 10, srv.Client())

	postings, err := g.Fetch(context.Background(), model.CategoryInternship, model.ModeRemote, "Web Development")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %+v", postings)
	}
	p := postings[0]
	if p.Description != "Ship React screens." || p.Freshness != "2026-02-10" || p.Source != "Gem" {
		t.Errorf("unexpected posting: %+v", p)
	}
}

func TestBoardFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := NewLever(srv.URL, []string{"acme"}, filter.NewTopicFilter(nil, nil), 10, srv.Client())
	_, err := l.Fetch(context.Background(), model.CategoryJob, model.ModeRemote, "DevOps")
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 HTTPError, got %v", err)
	}
}

func TestWorkplaceMode(t *testing.T) {
	tests := []struct {
		workplace, location string
		want                model.Mode
	}{
		{"remote", "", model.ModeRemote},
		{"Hybrid", "", model.ModeHybrid},
		{"OnSite", "Remote", model.ModeOnsite},
		{"", "Remote - EU", model.ModeRemote},
		{"", "Pune", model.ModeOnsite},
	}
	for _, tc := range tests {
		if got := workplaceMode(tc.workplace, tc.location); got != tc.want {
			t.Errorf("workplaceMode(%q, %q) = %s, want %s", tc.workplace, tc.location, got, tc.want)
		}
	}
}
