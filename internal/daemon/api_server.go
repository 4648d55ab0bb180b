package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"trawler/internal/api"
	"trawler/internal/executions"
	"trawler/internal/logging"
	"trawler/internal/match"
)

const (
	streamFetchLimit   = 256
	streamPollInterval = time.Second
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/tasks", srv.handleTasks)
	mux.HandleFunc("/api/match", srv.handleMatch)
	mux.HandleFunc("/api/executions", srv.handleExecutions)
	mux.HandleFunc("/api/executions/", srv.handleExecutionItem)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound address once the server is listening.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Version:    status.Version,
		PID:        status.PID,
		StartedAt:  status.StartedAt,
		UptimeSec:  int64(time.Since(status.StartedAt).Seconds()),
		QueueDepth: status.QueueDepth,
		Executions: status.Executions,
		Tasks:      status.Tasks,
	})
}

func (s *apiServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	infos := make([]api.TaskInfo, 0, len(s.daemon.defs))
	for name, def := range s.daemon.defs {
		infos = append(infos, api.TaskInfo{
			Name:   name,
			Inputs: def.Inputs,
			Lookup: def.Lookup,
			Year:   def.Year,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: infos})
}

func (s *apiServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := match.Query{Name: strings.TrimSpace(r.URL.Query().Get("name"))}
	if query.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name parameter required")
		return
	}
	if value := r.URL.Query().Get("year"); value != "" {
		year, err := strconv.Atoi(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid year parameter")
			return
		}
		query.Year = year
	}

	result, err := s.daemon.Lookup(r.Context(), query)
	if err != nil {
		if errors.Is(err, match.ErrInvalidQuery) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.MatchResponse{Query: query, Result: result})
}

func (s *apiServer) handleExecutions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records := s.daemon.registry.List()
		s.writeJSON(w, http.StatusOK, api.ExecutionListResponse{Executions: api.FromRecords(records)})
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tasks) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one task required")
		return
	}
	// Unknown names reject the whole batch before anything is enqueued.
	for _, name := range req.Tasks {
		if _, ok := s.daemon.defs[name]; !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown task %q", name))
			return
		}
	}

	submitted := make([]api.Execution, 0, len(req.Tasks))
	for _, name := range req.Tasks {
		rec, err := s.daemon.Submit(name, executions.Options{NoCache: req.NoCache})
		if err != nil {
			// Earlier submissions in the batch still run; hand their
			// ids back with the error so the caller can track them.
			status := http.StatusInternalServerError
			if errors.Is(err, executions.ErrQueueFull) {
				status = http.StatusServiceUnavailable
			}
			s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Executions: submitted})
			return
		}
		submitted = append(submitted, api.FromRecord(rec))
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{Executions: submitted})
}

func (s *apiServer) handleExecutionItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/executions/")
	id, suffix, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "execution not found")
		return
	}

	switch suffix {
	case "":
		rec, err := s.daemon.registry.Get(id)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "execution not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromRecord(rec))
	case "log":
		s.streamExecutionLog(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "execution not found")
	}
}

// streamExecutionLog writes the execution's log as line-delimited JSON,
// following the hub until the execution finishes. Whether to stop is
// re-checked only after a read comes back empty, so lines emitted between
// the finish transition and the final drain are never lost.
func (s *apiServer) streamExecutionLog(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.daemon.registry.Get(id); err != nil {
		s.writeError(w, http.StatusNotFound, "execution not found")
		return
	}
	hub := s.daemon.hub
	if hub == nil {
		s.writeError(w, http.StatusNotFound, "log streaming disabled")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	var cursor uint64
	for {
		fetchCtx, cancel := context.WithTimeout(r.Context(), streamPollInterval)
		events, next, err := hub.Fetch(fetchCtx, cursor, streamFetchLimit, true)
		cancel()
		if err != nil && r.Context().Err() != nil {
			return
		}
		cursor = next

		wrote := false
		for _, evt := range events {
			if evt.ExecutionID != id {
				continue
			}
			if err := encoder.Encode(api.FromLogEvent(evt)); err != nil {
				return
			}
			wrote = true
		}
		if wrote && flusher != nil {
			flusher.Flush()
		}

		if len(events) == 0 {
			finished, err := s.daemon.registry.IsFinished(id)
			if err != nil || finished {
				return
			}
		}
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
