package match

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"trawler/internal/logging"
)

// ErrInvalidQuery reports a query whose name is empty after trimming.
var ErrInvalidQuery = errors.New("invalid query: name is empty")

// Default resolver thresholds.
const (
	DefaultMinMatch = 0.7
	DefaultMinDiff  = 0.01
)

// Resolver reduces a scored candidate set to a single best match. When
// SingleMatch is set, ambiguity collapses to no match instead of returning
// the ambiguous set.
type Resolver struct {
	MinMatch    float64
	MinDiff     float64
	SingleMatch bool

	logger *slog.Logger
}

// NewResolver constructs a Resolver, substituting defaults for out-of-range
// thresholds.
func NewResolver(minMatch, minDiff float64, singleMatch bool, logger *slog.Logger) *Resolver {
	if minMatch <= 0 || minMatch > 1 {
		minMatch = DefaultMinMatch
	}
	if minDiff < 0 {
		minDiff = DefaultMinDiff
	}
	return &Resolver{
		MinMatch:    minMatch,
		MinDiff:     minDiff,
		SingleMatch: singleMatch,
		logger:      logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve applies the filter-and-decide pipeline: year filter with exact
// match detection, minimum score filter, exact-match short-circuit, then
// the ambiguity tie-break. Absence of a match is a normal outcome, not an
// error.
func (r *Resolver) Resolve(query Query, candidates []Candidate) (Result, error) {
	query = query.Normalized()
	if query.Name == "" {
		return None(), ErrInvalidQuery
	}

	var remaining []Candidate
	var exact []Candidate
	for _, candidate := range candidates {
		if query.Year != 0 && candidate.Year != 0 {
			if candidate.Year != query.Year {
				r.logger.Debug("dropping candidate: wrong year",
					logging.String("name", candidate.Name),
					logging.Int("candidate_year", candidate.Year),
					logging.Int("query_year", query.Year))
				continue
			}
			if strings.EqualFold(candidate.Name, query.Name) {
				exact = append(exact, candidate)
			}
		}
		if candidate.Score < r.MinMatch {
			r.logger.Debug("dropping candidate: below min_match",
				logging.String("name", candidate.Name),
				logging.Float64("score", candidate.Score),
				logging.Float64("min_match", r.MinMatch))
			continue
		}
		remaining = append(remaining, candidate)
	}

	if len(remaining) == 0 {
		r.logger.Debug("no candidates remain after filtering", logging.String("query", query.Name))
		return None(), nil
	}

	if len(exact) == 1 {
		r.logger.Debug("exact match found", logging.String("name", exact[0].Name))
		return Single(exact[0]), nil
	}

	if len(remaining) == 1 {
		return Single(remaining[0]), nil
	}

	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Score > remaining[j].Score
	})
	diff := remaining[0].Score - remaining[1].Score
	if diff < r.MinDiff {
		r.logger.Debug("match ambiguous: score difference below threshold",
			logging.String("top", remaining[0].Name),
			logging.String("runner_up", remaining[1].Name),
			logging.Float64("diff", diff),
			logging.Float64("min_diff", r.MinDiff))
		if r.SingleMatch {
			return None(), nil
		}
		return Ambiguous(remaining), nil
	}
	return Single(remaining[0]), nil
}
