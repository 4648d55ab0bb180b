package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"trawler/internal/imdb"
	"trawler/internal/logging"
	"trawler/internal/match"
)

// Matcher resolves a title query to a match result.
type Matcher interface {
	Lookup(ctx context.Context, query match.Query) (match.Result, error)
}

// Summary counts what happened to a run's entries.
type Summary struct {
	Fetched   int `json:"fetched"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Matched   int `json:"matched"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
	Failed    int `json:"failed"`
}

// Pipeline runs task definitions against their inputs.
type Pipeline struct {
	httpClient   *http.Client
	matcher      Matcher
	fetchTimeout time.Duration
}

// NewPipeline builds a Pipeline. matcher may be nil when no task uses
// lookups.
func NewPipeline(httpClient *http.Client, matcher Matcher, fetchTimeout time.Duration) *Pipeline {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Pipeline{httpClient: httpClient, matcher: matcher, fetchTimeout: fetchTimeout}
}

// Run executes def: fetch, filter, enrich. An unreachable input aborts the
// run; a failed lookup only marks its entry, unless the remote layout
// changed, which aborts because every later lookup would fail the same way.
func (p *Pipeline) Run(ctx context.Context, logger *slog.Logger, def Definition) (Summary, error) {
	var summary Summary
	logger = logging.NewComponentLogger(logger, "task")

	for _, input := range def.Inputs {
		entries, err := p.fetchEntries(ctx, input)
		if err != nil {
			return summary, fmt.Errorf("fetch input %s: %w", input, err)
		}
		summary.Fetched += len(entries)
		logger.Info("input fetched",
			logging.String("input", input),
			logging.Int("entries", len(entries)))

		for _, entry := range entries {
			if !def.Accepts(entry.Title) {
				summary.Rejected++
				logger.Debug("entry rejected", logging.String("title", entry.Title))
				continue
			}
			summary.Accepted++

			if !def.Lookup {
				logger.Info("entry accepted", logging.String("title", entry.Title))
				continue
			}
			if err := p.enrich(ctx, logger, def, entry, &summary); err != nil {
				return summary, err
			}
		}
	}

	logger.Info("task run complete",
		logging.String(logging.FieldTask, def.Name),
		logging.Int("fetched", summary.Fetched),
		logging.Int("accepted", summary.Accepted),
		logging.Int("rejected", summary.Rejected),
		logging.Int("matched", summary.Matched),
		logging.Int("ambiguous", summary.Ambiguous),
		logging.Int("unmatched", summary.Unmatched),
		logging.Int("failed", summary.Failed))
	return summary, nil
}

func (p *Pipeline) enrich(ctx context.Context, logger *slog.Logger, def Definition, entry Entry, summary *Summary) error {
	if p.matcher == nil {
		summary.Failed++
		logger.Warn("lookup requested but no matcher configured",
			logging.String("title", entry.Title))
		return nil
	}

	query := match.Query{Name: entry.Title, Year: entry.Year}
	if query.Year == 0 {
		query.Year = def.Year
	}
	result, err := p.matcher.Lookup(ctx, query)
	if err != nil {
		if errors.Is(err, imdb.ErrFormatChanged) {
			return fmt.Errorf("lookup %q: %w", entry.Title, err)
		}
		summary.Failed++
		logger.Warn("lookup failed",
			logging.String("title", entry.Title), logging.Error(err))
		return nil
	}

	switch result.Kind() {
	case match.KindSingle:
		summary.Matched++
		best, _ := result.Best()
		logger.Info("entry matched",
			logging.String("title", entry.Title),
			logging.String("id", best.ID),
			logging.String("name", best.Name),
			logging.Int("year", best.Year),
			logging.Float64("score", best.Score))
	case match.KindAmbiguous:
		summary.Ambiguous++
		logger.Warn("entry ambiguous",
			logging.String("title", entry.Title),
			logging.Int("candidates", len(result.Candidates())))
	default:
		summary.Unmatched++
		logger.Info("entry unmatched", logging.String("title", entry.Title))
	}
	return nil
}

// fetchEntries pulls a JSON array of entries from a feed URL.
func (p *Pipeline) fetchEntries(ctx context.Context, url string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}
