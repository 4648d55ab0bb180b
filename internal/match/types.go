package match

import (
	"encoding/json"
	"strings"
)

// Candidate is a single external search result considered as a possible
// match for a query. Position is the candidate's 0-based rank in the
// source's natural result order and never changes after discovery; Score is
// assigned by the Scorer.
type Candidate struct {
	Name           string   `json:"name"`
	AlternateNames []string `json:"alternate_names,omitempty"`
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Year           int      `json:"year,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	Score          float64  `json:"score"`
	Position       int      `json:"position"`
}

// Query names the title being resolved. Year of 0 means unknown.
type Query struct {
	Name string `json:"name"`
	Year int    `json:"year,omitempty"`
}

// Normalized returns the query with surrounding whitespace stripped.
func (q Query) Normalized() Query {
	q.Name = strings.TrimSpace(q.Name)
	return q
}

// Kind enumerates resolver outcomes.
type Kind string

const (
	KindNone      Kind = "none"
	KindSingle    Kind = "single"
	KindAmbiguous Kind = "ambiguous"
)

// Result is the resolver's verdict. It is immutable once produced.
type Result struct {
	kind       Kind
	candidates []Candidate
}

// None reports that no candidate matched.
func None() Result {
	return Result{kind: KindNone}
}

// Single wraps the one candidate that won.
func Single(c Candidate) Result {
	return Result{kind: KindSingle, candidates: []Candidate{c}}
}

// Ambiguous wraps the set of candidates that were too close to call.
func Ambiguous(candidates []Candidate) Result {
	cp := make([]Candidate, len(candidates))
	copy(cp, candidates)
	return Result{kind: KindAmbiguous, candidates: cp}
}

// Kind returns the outcome classification.
func (r Result) Kind() Kind {
	if r.kind == "" {
		return KindNone
	}
	return r.kind
}

// Best returns the winning candidate for single results.
func (r Result) Best() (Candidate, bool) {
	if r.Kind() != KindSingle || len(r.candidates) == 0 {
		return Candidate{}, false
	}
	return r.candidates[0], true
}

// Candidates returns a copy of the result's candidate set.
func (r Result) Candidates() []Candidate {
	cp := make([]Candidate, len(r.candidates))
	copy(cp, r.candidates)
	return cp
}

// MarshalJSON serializes as {"match": ..., "candidates": [...]}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Match      Kind        `json:"match"`
		Candidates []Candidate `json:"candidates"`
	}{
		Match:      r.Kind(),
		Candidates: r.candidates,
	})
}

// UnmarshalJSON restores a Result from its wire form.
func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Match      Kind        `json:"match"`
		Candidates []Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.kind = wire.Match
	r.candidates = wire.Candidates
	return nil
}
