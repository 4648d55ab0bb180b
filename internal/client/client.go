package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trawler/internal/api"
	"trawler/internal/match"
)

// ErrNotFound reports a 404 from the daemon.
var ErrNotFound = errors.New("client: not found")

// StatusError is a non-2xx reply from the daemon. A batch submission that
// failed partway through carries the executions created before the failure.
type StatusError struct {
	Code       int
	Message    string
	Executions []api.Execution
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("daemon returned %d", e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// HTTPDoer describes the HTTP client used to reach the daemon.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the daemon's control API.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// New builds a client for the daemon listening at bind (host:port or a
// full URL).
func New(bind string, httpClient HTTPDoer) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: base, http: httpClient}
}

// Submit asks the daemon to run the named tasks. When the daemon rejects
// the batch partway through, the executions it accepted before failing are
// returned alongside the error.
func (c *Client) Submit(ctx context.Context, tasks []string, noCache bool) ([]api.Execution, error) {
	payload, err := json.Marshal(api.SubmitRequest{Tasks: tasks, NoCache: noCache})
	if err != nil {
		return nil, err
	}
	var resp api.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/executions", bytes.NewReader(payload), &resp); err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			return serr.Executions, err
		}
		return nil, err
	}
	return resp.Executions, nil
}

// Executions lists every execution the daemon remembers.
func (c *Client) Executions(ctx context.Context) ([]api.Execution, error) {
	var resp api.ExecutionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/executions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Executions, nil
}

// Execution fetches one execution by id.
func (c *Client) Execution(ctx context.Context, id string) (api.Execution, error) {
	var resp api.Execution
	if err := c.do(ctx, http.MethodGet, "/api/executions/"+url.PathEscape(id), nil, &resp); err != nil {
		return api.Execution{}, err
	}
	return resp, nil
}

// FollowLog streams the execution's log lines to handle until the stream
// ends or handle returns an error.
func (c *Client) FollowLog(ctx context.Context, id string, handle func(api.LogLine) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/executions/"+url.PathEscape(id)+"/log", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("follow log: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line api.LogLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("decode log line: %w", err)
		}
		if err := handle(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Status fetches the daemon's runtime summary.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return api.StatusResponse{}, err
	}
	return resp, nil
}

// Tasks lists the daemon's configured tasks.
func (c *Client) Tasks(ctx context.Context) ([]api.TaskInfo, error) {
	var resp api.TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// Match resolves an ad-hoc title query through the daemon.
func (c *Client) Match(ctx context.Context, query match.Query) (api.MatchResponse, error) {
	params := url.Values{}
	params.Set("name", query.Name)
	if query.Year != 0 {
		params.Set("year", strconv.Itoa(query.Year))
	}
	var resp api.MatchResponse
	if err := c.do(ctx, http.MethodGet, "/api/match?"+params.Encode(), nil, &resp); err != nil {
		return api.MatchResponse{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	serr := &StatusError{Code: resp.StatusCode}
	var payload api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &payload); err == nil {
		serr.Message = payload.Error
		serr.Executions = payload.Executions
	}
	return serr
}
