package executions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"trawler/internal/logging"
)

// ErrQueueFull reports that the submission queue has no room left.
var ErrQueueFull = errors.New("executions: queue full")

// RunFunc performs the work of one execution. The logger it receives tags
// every record with the execution id so the log stream can be filtered.
type RunFunc func(ctx context.Context, logger *slog.Logger, rec Record) error

// Runner drains submitted executions through a fixed pool of workers.
type Runner struct {
	registry *Registry
	run      RunFunc
	logger   *slog.Logger
	workers  int
	queue    chan Record

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewRunner builds a Runner over registry. workers and queueCapacity fall
// back to 1 and 16 when out of range.
func NewRunner(registry *Registry, run RunFunc, workers, queueCapacity int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity < 1 {
		queueCapacity = 16
	}
	return &Runner{
		registry: registry,
		run:      run,
		logger:   logging.NewComponentLogger(logger, "executions"),
		workers:  workers,
		queue:    make(chan Record, queueCapacity),
	}
}

// Start launches the worker pool. When ctx ends the workers finish any
// still-queued records with the context's error before exiting, so nothing
// is left pending forever. Start is idempotent.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// QueueDepth returns the number of submissions waiting for a worker.
func (r *Runner) QueueDepth() int {
	return len(r.queue)
}

// Submit registers a pending execution for task and enqueues it. It never
// blocks: a full queue finishes the record immediately with ErrQueueFull.
func (r *Runner) Submit(task string, opts Options) (Record, error) {
	rec := r.registry.Create(task, opts)
	select {
	case r.queue <- rec:
		r.logger.Info("execution submitted",
			logging.String(logging.FieldExecutionID, rec.ID),
			logging.String(logging.FieldTask, task))
		return rec, nil
	default:
		finished, _ := r.registry.MarkFinished(rec.ID, ErrQueueFull)
		return finished, ErrQueueFull
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			r.drain(ctx)
			return
		case rec, ok := <-r.queue:
			if !ok {
				return
			}
			r.execute(ctx, rec)
		}
	}
}

// drain finishes everything still queued at shutdown with the context's
// error so no record stays pending after the workers exit.
func (r *Runner) drain(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			if _, err := r.registry.MarkFinished(rec.ID, ctx.Err()); err != nil {
				r.logger.Error("mark finished failed",
					logging.String(logging.FieldExecutionID, rec.ID), logging.Error(err))
			}
		default:
			return
		}
	}
}

func (r *Runner) execute(ctx context.Context, rec Record) {
	current, err := r.registry.MarkRunning(rec.ID)
	if err != nil {
		r.logger.Error("mark running failed",
			logging.String(logging.FieldExecutionID, rec.ID), logging.Error(err))
		return
	}

	runLogger := logging.WithExecution(r.logger, current.ID)
	runLogger.Info("execution started", logging.String(logging.FieldTask, current.Task))

	runErr := r.safeRun(ctx, runLogger, current)
	if _, err := r.registry.MarkFinished(current.ID, runErr); err != nil {
		r.logger.Error("mark finished failed",
			logging.String(logging.FieldExecutionID, current.ID), logging.Error(err))
		return
	}
	if runErr != nil {
		runLogger.Error("execution failed", logging.Error(runErr))
		return
	}
	runLogger.Info("execution finished")
}

// safeRun invokes the run function and converts a panic into an error so a
// misbehaving task cannot take a worker down.
func (r *Runner) safeRun(ctx context.Context, logger *slog.Logger, rec Record) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("execution panicked: %v", v)
		}
	}()
	if r.run == nil {
		return errors.New("no run function configured")
	}
	return r.run(ctx, logger, rec)
}
