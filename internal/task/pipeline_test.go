package task

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trawler/internal/config"
	"trawler/internal/imdb"
	"trawler/internal/logging"
	"trawler/internal/match"
)

type fakeMatcher struct {
	results map[string]match.Result
	err     error
	queries []match.Query
}

func (f *fakeMatcher) Lookup(ctx context.Context, query match.Query) (match.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return match.None(), f.err
	}
	if result, ok := f.results[query.Name]; ok {
		return result, nil
	}
	return match.None(), nil
}

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func mustDefinition(t *testing.T, name string, cfg config.Task) Definition {
	t.Helper()
	def, err := NewDefinition(name, cfg)
	if err != nil {
		t.Fatalf("NewDefinition: %v", err)
	}
	return def
}

func TestRunFiltersAndMatches(t *testing.T) {
	feed := feedServer(t, `[
		{"title": "The Matrix 1080p", "year": 1999},
		{"title": "The Matrix CAM", "year": 1999},
		{"title": "Some Obscure Thing 1080p"}
	]`)

	matcher := &fakeMatcher{results: map[string]match.Result{
		"The Matrix 1080p": match.Single(match.Candidate{Name: "The Matrix", ID: "tt0133093", Year: 1999, Score: 0.95}),
	}}
	pipeline := NewPipeline(feed.Client(), matcher, time.Second)
	def := mustDefinition(t, "movies", config.Task{
		Inputs: []string{feed.URL},
		Reject: []string{`\bCAM\b`},
		Lookup: true,
	})

	summary, err := pipeline.Run(context.Background(), logging.NewNop(), def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Summary{Fetched: 3, Accepted: 2, Rejected: 1, Matched: 1, Unmatched: 1}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
	if len(matcher.queries) != 2 {
		t.Fatalf("matcher saw %d queries, want 2", len(matcher.queries))
	}
	if matcher.queries[0].Year != 1999 {
		t.Errorf("entry year not forwarded: %+v", matcher.queries[0])
	}
}

func TestRunUsesTaskYearWhenEntryLacksOne(t *testing.T) {
	feed := feedServer(t, `[{"title": "The Matrix"}]`)
	matcher := &fakeMatcher{}
	pipeline := NewPipeline(feed.Client(), matcher, time.Second)
	def := mustDefinition(t, "movies", config.Task{
		Inputs: []string{feed.URL},
		Lookup: true,
		Year:   1999,
	})

	if _, err := pipeline.Run(context.Background(), logging.NewNop(), def); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(matcher.queries) != 1 || matcher.queries[0].Year != 1999 {
		t.Errorf("queries = %+v, want task year applied", matcher.queries)
	}
}

func TestRunSkipsLookupWhenDisabled(t *testing.T) {
	feed := feedServer(t, `[{"title": "The Matrix"}]`)
	matcher := &fakeMatcher{}
	pipeline := NewPipeline(feed.Client(), matcher, time.Second)
	def := mustDefinition(t, "movies", config.Task{Inputs: []string{feed.URL}})

	summary, err := pipeline.Run(context.Background(), logging.NewNop(), def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Accepted != 1 || len(matcher.queries) != 0 {
		t.Errorf("summary = %+v, queries = %d", summary, len(matcher.queries))
	}
}

func TestRunAbortsOnUnreachableInput(t *testing.T) {
	server := feedServer(t, "[]")
	url := server.URL
	server.Close()

	pipeline := NewPipeline(nil, nil, time.Second)
	def := mustDefinition(t, "movies", config.Task{Inputs: []string{url}})
	if _, err := pipeline.Run(context.Background(), logging.NewNop(), def); err == nil {
		t.Fatal("expected error for unreachable input")
	}
}

func TestRunAbortsOnBadFeedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	pipeline := NewPipeline(server.Client(), nil, time.Second)
	def := mustDefinition(t, "movies", config.Task{Inputs: []string{server.URL}})
	if _, err := pipeline.Run(context.Background(), logging.NewNop(), def); err == nil {
		t.Fatal("expected error for non-200 feed")
	}
}

func TestRunCountsLookupFailures(t *testing.T) {
	feed := feedServer(t, `[{"title": "The Matrix"}, {"title": "Inception"}]`)
	matcher := &fakeMatcher{err: errors.New("temporarily unavailable")}
	pipeline := NewPipeline(feed.Client(), matcher, time.Second)
	def := mustDefinition(t, "movies", config.Task{Inputs: []string{feed.URL}, Lookup: true})

	summary, err := pipeline.Run(context.Background(), logging.NewNop(), def)
	if err != nil {
		t.Fatalf("transient lookup failures must not abort the run: %v", err)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
}

func TestRunAbortsOnFormatChange(t *testing.T) {
	feed := feedServer(t, `[{"title": "The Matrix"}, {"title": "Inception"}]`)
	matcher := &fakeMatcher{err: imdb.ErrFormatChanged}
	pipeline := NewPipeline(feed.Client(), matcher, time.Second)
	def := mustDefinition(t, "movies", config.Task{Inputs: []string{feed.URL}, Lookup: true})

	_, err := pipeline.Run(context.Background(), logging.NewNop(), def)
	if !errors.Is(err, imdb.ErrFormatChanged) {
		t.Fatalf("err = %v, want ErrFormatChanged to abort the run", err)
	}
	if len(matcher.queries) != 1 {
		t.Errorf("matcher saw %d queries, want abort after the first", len(matcher.queries))
	}
}

func TestRunAmbiguousCounted(t *testing.T) {
	feed := feedServer(t, `[{"title": "The Matrix"}]`)
	matcher := &fakeMatcher{results: map[string]match.Result{
		"The Matrix": match.Ambiguous([]match.Candidate{
			{Name: "The Matrix", Score: 0.8},
			{Name: "The Matrix Reloaded", Score: 0.795},
		}),
	}}
	pipeline := NewPipeline(feed.Client(), matcher, time.Second)
	def := mustDefinition(t, "movies", config.Task{Inputs: []string{feed.URL}, Lookup: true})

	summary, err := pipeline.Run(context.Background(), logging.NewNop(), def)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Ambiguous != 1 {
		t.Errorf("Ambiguous = %d, want 1", summary.Ambiguous)
	}
}
