package executions

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports that no execution exists for the requested id.
var ErrNotFound = errors.New("executions: not found")

// Status is an execution's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

// Options carries per-submission flags.
type Options struct {
	// NoCache makes the run bypass the search result cache.
	NoCache bool `json:"no_cache,omitempty"`
}

// Record is a snapshot of one execution. Copies returned by the registry
// are detached; mutating them has no effect on the stored state.
type Record struct {
	ID       string     `json:"id"`
	Task     string     `json:"task"`
	Status   Status     `json:"status"`
	Options  Options    `json:"options"`
	Created  time.Time  `json:"created"`
	Started  *time.Time `json:"started,omitempty"`
	Finished *time.Time `json:"finished,omitempty"`
	// Message holds the failure detail; empty means success.
	Message string `json:"message,omitempty"`
}

// Registry is the in-memory execution store. State is deliberately not
// persisted: ids become invalid when the daemon restarts.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Create registers a new pending execution for task and returns its record.
func (r *Registry) Create(task string, opts Options) Record {
	rec := &Record{
		ID:      uuid.NewString(),
		Task:    task,
		Status:  StatusPending,
		Options: opts,
		Created: time.Now().UTC(),
	}
	r.mu.Lock()
	r.records[rec.ID] = rec
	r.order = append(r.order, rec.ID)
	r.mu.Unlock()
	return *rec
}

// Get returns the record for id or ErrNotFound.
func (r *Registry) Get(id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *rec, nil
}

// List returns all records in submission order.
func (r *Registry) List() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// MarkRunning transitions id from pending to running, stamping Started.
// Any other starting state leaves the record untouched.
func (r *Registry) MarkRunning(id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status == StatusPending {
		now := time.Now().UTC()
		rec.Status = StatusRunning
		rec.Started = &now
	}
	return *rec, nil
}

// MarkFinished transitions id to finished, stamping Finished and recording
// the failure message when runErr is non-nil. Finishing an already finished
// execution is a no-op.
func (r *Registry) MarkFinished(id string, runErr error) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status != StatusFinished {
		now := time.Now().UTC()
		rec.Status = StatusFinished
		rec.Finished = &now
		if runErr != nil {
			rec.Message = runErr.Error()
		}
	}
	return *rec, nil
}

// IsFinished reports whether id exists and has reached its terminal state.
func (r *Registry) IsFinished(id string) (bool, error) {
	rec, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return rec.Status == StatusFinished, nil
}
