package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trawler/internal/api"
	"trawler/internal/match"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, server.Client())
}

func TestSubmit(t *testing.T) {
	var gotReq api.SubmitRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/executions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(api.SubmitResponse{Executions: []api.Execution{
			{ID: "abc", Task: "movies", Status: "pending", Created: time.Now()},
		}})
	}))

	executions, err := client.Submit(context.Background(), []string{"movies"}, true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(executions) != 1 || executions[0].ID != "abc" {
		t.Errorf("executions = %+v", executions)
	}
	if len(gotReq.Tasks) != 1 || gotReq.Tasks[0] != "movies" || !gotReq.NoCache {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestSubmitReturnsPartialBatchOnQueueFull(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(api.ErrorResponse{
			Error: "executions: queue full",
			Executions: []api.Execution{
				{ID: "abc", Task: "movies", Status: "pending"},
				{ID: "def", Task: "shows", Status: "pending"},
			},
		})
	}))

	executions, err := client.Submit(context.Background(), []string{"movies", "shows", "extras"}, false)
	if err == nil {
		t.Fatal("expected error for overflowed batch")
	}
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want StatusError with 503", err)
	}
	if len(executions) != 2 || executions[0].ID != "abc" || executions[1].ID != "def" {
		t.Errorf("accepted executions = %+v, want abc and def", executions)
	}
}

func TestExecutionNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "execution not found"}`)
	}))

	_, err := client.Execution(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFollowLogDecodesLines(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"seq":1,"level":"INFO","msg":"execution started","execution_id":"abc"}`)
		fmt.Fprintln(w, `{"seq":2,"level":"INFO","msg":"execution finished","execution_id":"abc"}`)
	}))

	var lines []api.LogLine
	err := client.FollowLog(context.Background(), "abc", func(line api.LogLine) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("FollowLog: %v", err)
	}
	if len(lines) != 2 || lines[0].Message != "execution started" || lines[1].Sequence != 2 {
		t.Errorf("lines = %+v", lines)
	}
}

func TestFollowLogHandlerErrorStopsStream(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, `{"seq":%d,"msg":"line"}`+"\n", i+1)
		}
	}))

	stop := errors.New("stop")
	var seen int
	err := client.FollowLog(context.Background(), "abc", func(line api.LogLine) error {
		seen++
		if seen == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want handler error", err)
	}
	if seen != 3 {
		t.Errorf("seen = %d, want 3", seen)
	}
}

func TestMatchRoundTrip(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "The Matrix" {
			t.Errorf("name = %q", got)
		}
		if got := r.URL.Query().Get("year"); got != "1999" {
			t.Errorf("year = %q", got)
		}
		json.NewEncoder(w).Encode(api.MatchResponse{
			Query: match.Query{Name: "The Matrix", Year: 1999},
			Result: match.Single(match.Candidate{
				Name: "The Matrix", ID: "tt0133093", Year: 1999, Score: 0.95,
			}),
		})
	}))

	resp, err := client.Match(context.Background(), match.Query{Name: "The Matrix", Year: 1999})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if resp.Result.Kind() != match.KindSingle {
		t.Fatalf("kind = %v", resp.Result.Kind())
	}
	best, ok := resp.Result.Best()
	if !ok || best.ID != "tt0133093" {
		t.Errorf("best = %+v", best)
	}
}

func TestStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatusResponse{Version: "1.2.3", PID: 42, Tasks: 2})
	}))

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Version != "1.2.3" || status.PID != 42 {
		t.Errorf("status = %+v", status)
	}
}

func TestNewNormalizesBind(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"127.0.0.1:7591", "http://127.0.0.1:7591"},
		{"http://127.0.0.1:7591/", "http://127.0.0.1:7591"},
	}
	for _, tt := range tests {
		if got := New(tt.in, nil).baseURL; got != tt.want {
			t.Errorf("New(%q).baseURL = %q, want %q", tt.in, got, tt.want)
		}
	}
}
