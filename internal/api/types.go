package api

import (
	"time"

	"trawler/internal/match"
)

// Execution mirrors one execution record on the wire.
type Execution struct {
	ID       string     `json:"id"`
	Task     string     `json:"task"`
	Status   string     `json:"status"`
	Created  time.Time  `json:"created"`
	Started  *time.Time `json:"started,omitempty"`
	Finished *time.Time `json:"finished,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// SubmitRequest asks the daemon to run one or more tasks.
type SubmitRequest struct {
	Tasks   []string `json:"tasks"`
	NoCache bool     `json:"no_cache,omitempty"`
}

// SubmitResponse returns the ids assigned to the submitted tasks, in the
// same order.
type SubmitResponse struct {
	Executions []Execution `json:"executions"`
}

// ExecutionListResponse wraps the full execution list.
type ExecutionListResponse struct {
	Executions []Execution `json:"executions"`
}

// LogLine is one streamed log record. The stream carries one JSON object
// per line.
type LogLine struct {
	Sequence    uint64            `json:"seq"`
	Timestamp   time.Time         `json:"ts"`
	Level       string            `json:"level"`
	Message     string            `json:"msg"`
	Component   string            `json:"component,omitempty"`
	ExecutionID string            `json:"execution_id,omitempty"`
	Task        string            `json:"task,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Version    string    `json:"version"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	UptimeSec  int64     `json:"uptime_sec"`
	QueueDepth int       `json:"queue_depth"`
	Executions int       `json:"executions"`
	Tasks      int       `json:"tasks"`
}

// TaskInfo describes one configured task.
type TaskInfo struct {
	Name   string   `json:"name"`
	Inputs []string `json:"inputs"`
	Lookup bool     `json:"lookup"`
	Year   int      `json:"year,omitempty"`
}

// TaskListResponse wraps the configured tasks.
type TaskListResponse struct {
	Tasks []TaskInfo `json:"tasks"`
}

// MatchResponse carries an ad-hoc lookup result.
type MatchResponse struct {
	Query  match.Query  `json:"query"`
	Result match.Result `json:"result"`
}

// ErrorResponse is the uniform error payload. A batch submission that fails
// partway through includes the executions created before the failure so the
// caller can still track them.
type ErrorResponse struct {
	Error      string      `json:"error"`
	Executions []Execution `json:"executions,omitempty"`
}
