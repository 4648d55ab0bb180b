package match

import (
	"log/slog"
	"sort"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trawler/internal/logging"
)

// Default scoring weights. Alternate names are de-prioritized slightly even
// when they match better; earlier positions in the source order are favored
// with an effect that decays toward 1.0.
const (
	DefaultAkaWeight   = 0.95
	DefaultFirstWeight = 1.1
)

// Scorer computes similarity scores between a query name and candidates.
type Scorer struct {
	AkaWeight   float64
	FirstWeight float64

	logger *slog.Logger
}

// NewScorer constructs a Scorer, substituting defaults for out-of-range
// weights.
func NewScorer(akaWeight, firstWeight float64, logger *slog.Logger) *Scorer {
	if akaWeight <= 0 || akaWeight > 1 {
		akaWeight = DefaultAkaWeight
	}
	if firstWeight < 1 {
		firstWeight = DefaultFirstWeight
	}
	return &Scorer{
		AkaWeight:   akaWeight,
		FirstWeight: firstWeight,
		logger:      logging.NewComponentLogger(logger, "scorer"),
	}
}

// Score computes the weighted similarity of candidate to queryName. It is a
// pure function of its inputs.
func (s *Scorer) Score(queryName string, candidate Candidate) float64 {
	ratio := Similarity(candidate.Name, queryName)

	for _, aka := range candidate.AlternateNames {
		akaRatio := Similarity(aka, queryName)
		if akaRatio > ratio {
			ratio = akaRatio * s.AkaWeight
			s.logger.Debug("alternate name matches better",
				logging.String("aka", aka),
				logging.String("query", queryName),
				logging.Float64("aka_ratio", akaRatio),
				logging.Float64("weighted_ratio", ratio))
		}
	}

	positionRatio := PositionRatio(s.FirstWeight, candidate.Position)
	score := ratio * positionRatio
	s.logger.Debug("scored candidate",
		logging.String("name", candidate.Name),
		logging.Int("position", candidate.Position),
		logging.Float64("ratio", ratio),
		logging.Float64("position_ratio", positionRatio),
		logging.Float64("score", score))
	return score
}

// ScoreAll returns a copy of candidates with scores assigned, sorted by
// score descending. Source positions are preserved.
func (s *Scorer) ScoreAll(query Query, candidates []Candidate) []Candidate {
	scored := make([]Candidate, len(candidates))
	copy(scored, candidates)
	for i := range scored {
		scored[i].Score = s.Score(query.Name, scored[i])
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// PositionRatio is the weighting factor favoring candidates appearing
// earlier in the source order: (firstWeight-1)/(position+1) + 1. It decays
// toward 1.0 and never drops below it.
func PositionRatio(firstWeight float64, position int) float64 {
	if position < 0 {
		position = 0
	}
	return (firstWeight-1)/float64(position+1) + 1
}

// Similarity computes a character-sequence similarity ratio in [0, 1]
// between the two names. Comparison is case-normalized by title-casing both
// sides; spaces are treated as junk.
func Similarity(a, b string) float64 {
	caser := cases.Title(language.English)
	matcher := difflib.NewMatcherWithJunk(
		splitChars(caser.String(a)),
		splitChars(caser.String(b)),
		true,
		func(s string) bool { return s == " " },
	)
	return matcher.Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
