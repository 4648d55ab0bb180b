package searchcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"trawler/internal/logging"
	"trawler/internal/match"
)

// ErrMiss reports that no fresh entry exists for the requested query.
var ErrMiss = errors.New("searchcache: miss")

const schema = `
CREATE TABLE IF NOT EXISTS search_results (
    query      TEXT PRIMARY KEY,
    perfect    INTEGER NOT NULL DEFAULT 0,
    candidates TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_results_created ON search_results(created_at);
`

// Entry is one cached search outcome.
type Entry struct {
	Candidates []match.Candidate
	Perfect    bool
}

// Cache stores search results keyed by normalized query text.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open initializes or connects to the cache database at path.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("searchcache: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Cache{
		db:     db,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "searchcache"),
	}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached entry for query, or ErrMiss when absent or
// expired. Expired rows are deleted on the way out.
func (c *Cache) Get(ctx context.Context, query string) (*Entry, error) {
	key := normalizeKey(query)
	if key == "" {
		return nil, ErrMiss
	}

	var (
		perfect   int
		payload   string
		createdAt int64
	)
	row := c.db.QueryRowContext(ctx,
		`SELECT perfect, candidates, created_at FROM search_results WHERE query = ?`, key)
	if err := row.Scan(&perfect, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	if c.ttl > 0 && time.Since(time.Unix(createdAt, 0)) > c.ttl {
		if _, err := c.db.ExecContext(ctx,
			`DELETE FROM search_results WHERE query = ?`, key); err != nil {
			c.logger.Warn("prune expired cache entry failed",
				logging.String("query", key), logging.Error(err))
		}
		return nil, ErrMiss
	}

	var candidates []match.Candidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		// A row we cannot decode is worthless; drop it and report a miss.
		_, _ = c.db.ExecContext(ctx, `DELETE FROM search_results WHERE query = ?`, key)
		return nil, ErrMiss
	}

	return &Entry{Candidates: candidates, Perfect: perfect != 0}, nil
}

// Put stores candidates for query, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, query string, entry Entry) error {
	key := normalizeKey(query)
	if key == "" {
		return errors.New("searchcache: empty query")
	}
	payload, err := json.Marshal(entry.Candidates)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	perfect := 0
	if entry.Perfect {
		perfect = 1
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO search_results (query, perfect, candidates, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET
		   perfect = excluded.perfect,
		   candidates = excluded.candidates,
		   created_at = excluded.created_at`,
		key, perfect, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Prune removes every entry older than the TTL and returns the count.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM search_results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

func normalizeKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
