package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"trawler/internal/config"
	"trawler/internal/executions"
	"trawler/internal/imdb"
	"trawler/internal/logging"
	"trawler/internal/match"
	"trawler/internal/metadata"
	"trawler/internal/searchcache"
	"trawler/internal/task"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Daemon owns the execution runner and its supporting services, and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	hub    *logging.StreamHub

	registry *executions.Registry
	runner   *executions.Runner
	defs     map[string]task.Definition

	cache    *searchcache.Cache
	matcher  *metadata.Service
	uncached *metadata.Service

	pipeline        *task.Pipeline
	pipelineNoCache *task.Pipeline

	lockPath string
	lock     *flock.Flock

	startedAt time.Time
	running   atomic.Bool
	cancel    context.CancelFunc

	api *apiServer
}

// New assembles a daemon from configuration. hub may be nil when log
// streaming is not wanted (tests).
func New(cfg *config.Config, logger *slog.Logger, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	defs, err := task.Definitions(cfg.Tasks)
	if err != nil {
		return nil, err
	}

	client, err := imdb.New(cfg.IMDB.BaseURL,
		imdb.WithMinInterval(cfg.IMDB.MinInterval()),
		imdb.WithMaxResults(cfg.IMDB.MaxResults),
		imdb.WithHeaders(cfg.IMDB.UserAgent, cfg.IMDB.AcceptLanguage),
		imdb.WithHTTPClient(&http.Client{Timeout: cfg.IMDB.Timeout()}),
		imdb.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build search client: %w", err)
	}

	var cache *searchcache.Cache
	if cfg.Cache.Enabled {
		cache, err = searchcache.Open(cfg.Cache.Path, cfg.Cache.TTL(), logger)
		if err != nil {
			return nil, fmt.Errorf("open search cache: %w", err)
		}
	}

	scorer := match.NewScorer(cfg.Matching.AkaWeight, cfg.Matching.FirstWeight, logger)
	resolver := match.NewResolver(cfg.Matching.MinMatch, cfg.Matching.MinDiff, cfg.Matching.SingleMatch, logger)

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		hub:      hub,
		registry: executions.NewRegistry(),
		defs:     defs,
		cache:    cache,
		matcher:  metadata.New(client, cache, scorer, resolver, logger),
		uncached: metadata.New(client, nil, scorer, resolver, logger),
		lockPath: filepath.Join(cfg.Paths.LogDir, "trawlerd.lock"),
	}
	d.pipeline = task.NewPipeline(nil, d.matcher, cfg.Workflow.FetchTimeout())
	d.pipelineNoCache = task.NewPipeline(nil, d.uncached, cfg.Workflow.FetchTimeout())
	d.lock = flock.New(d.lockPath)
	d.runner = executions.NewRunner(d.registry, d.runExecution,
		cfg.Workflow.Workers, cfg.Workflow.QueueCapacity, logger)
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// runExecution is the worker body: resolve the task definition and run the
// pipeline with a matcher picked by the submission's cache option.
func (d *Daemon) runExecution(ctx context.Context, logger *slog.Logger, rec executions.Record) error {
	def, ok := d.defs[rec.Task]
	if !ok {
		return fmt.Errorf("%w: %s", task.ErrUnknownTask, rec.Task)
	}
	pipeline := d.pipeline
	if rec.Options.NoCache {
		pipeline = d.pipelineNoCache
	}
	_, err := pipeline.Run(ctx, logger, def)
	return err
}

// Start acquires the instance lock and launches the workers and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another trawler daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	// Stamped before the API server comes up so /api/status never sees a
	// zero start time.
	d.startedAt = time.Now().UTC()
	d.runner.Start(runCtx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("trawler daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("tasks", len(d.defs)),
		logging.Int("workers", d.cfg.Workflow.Workers))
	return nil
}

// Stop shuts down the API server and workers and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.runner.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("trawler daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

// Submit enqueues an execution of the named task.
func (d *Daemon) Submit(name string, opts executions.Options) (executions.Record, error) {
	if _, ok := d.defs[name]; !ok {
		return executions.Record{}, fmt.Errorf("%w: %s", task.ErrUnknownTask, name)
	}
	return d.runner.Submit(name, opts)
}

// Lookup resolves an ad-hoc title query through the cached matcher.
func (d *Daemon) Lookup(ctx context.Context, query match.Query) (match.Result, error) {
	return d.matcher.Lookup(ctx, query)
}

// Status summarizes daemon runtime state.
type Status struct {
	Version    string
	PID        int
	StartedAt  time.Time
	QueueDepth int
	Executions int
	Tasks      int
}

func (d *Daemon) Status() Status {
	return Status{
		Version:    Version,
		PID:        os.Getpid(),
		StartedAt:  d.startedAt,
		QueueDepth: d.runner.QueueDepth(),
		Executions: len(d.registry.List()),
		Tasks:      len(d.defs),
	}
}
