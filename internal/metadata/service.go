package metadata

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"trawler/internal/imdb"
	"trawler/internal/logging"
	"trawler/internal/match"
	"trawler/internal/searchcache"
)

// Searcher is the slice of the search client the service needs.
type Searcher interface {
	Search(ctx context.Context, name string) (*imdb.SearchResult, error)
}

// Service turns a title query into a match result.
type Service struct {
	searcher Searcher
	cache    *searchcache.Cache
	scorer   *match.Scorer
	resolver *match.Resolver
	logger   *slog.Logger
}

// New builds a Service. cache may be nil to disable caching.
func New(searcher Searcher, cache *searchcache.Cache, scorer *match.Scorer, resolver *match.Resolver, logger *slog.Logger) *Service {
	if scorer == nil {
		scorer = match.NewScorer(match.DefaultAkaWeight, match.DefaultFirstWeight, logger)
	}
	if resolver == nil {
		resolver = match.NewResolver(match.DefaultMinMatch, match.DefaultMinDiff, false, logger)
	}
	return &Service{
		searcher: searcher,
		cache:    cache,
		scorer:   scorer,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "metadata"),
	}
}

// Lookup resolves query to its best match. A result of kind none is not
// an error; errors mean the search itself failed.
func (s *Service) Lookup(ctx context.Context, query match.Query) (match.Result, error) {
	query = query.Normalized()
	if strings.TrimSpace(query.Name) == "" {
		return match.None(), match.ErrInvalidQuery
	}

	candidates, perfect, err := s.candidates(ctx, query.Name)
	if err != nil {
		return match.None(), err
	}

	// A redirect hit already carries score 1.0 and needs no re-ranking.
	if !perfect {
		candidates = s.scorer.ScoreAll(query, candidates)
	}

	result, err := s.resolver.Resolve(query, candidates)
	if err != nil {
		return match.None(), err
	}
	s.logger.Debug("lookup resolved",
		logging.String("name", query.Name),
		logging.Int("year", query.Year),
		logging.String("kind", string(result.Kind())),
		logging.Int("candidates", len(candidates)))
	return result, nil
}

func (s *Service) candidates(ctx context.Context, name string) ([]match.Candidate, bool, error) {
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, name)
		if err == nil {
			s.logger.Debug("cache hit", logging.String("name", name))
			return entry.Candidates, entry.Perfect, nil
		}
		if !errors.Is(err, searchcache.ErrMiss) {
			s.logger.Warn("cache read failed", logging.String("name", name), logging.Error(err))
		}
	}

	result, err := s.searcher.Search(ctx, name)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		entry := searchcache.Entry{Candidates: result.Candidates, Perfect: result.Perfect}
		if err := s.cache.Put(ctx, name, entry); err != nil {
			s.logger.Warn("cache write failed", logging.String("name", name), logging.Error(err))
		}
	}
	return result.Candidates, result.Perfect, nil
}
