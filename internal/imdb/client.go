package imdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trawler/internal/logging"
	"trawler/internal/match"
)

// ErrFormatChanged reports that the external site's response no longer has
// the structure this client understands. It requires a code update and must
// never be retried automatically.
var ErrFormatChanged = errors.New("imdb: response format changed, parser needs updating")

// Default client settings mirroring the site's tolerated usage.
const (
	DefaultBaseURL        = "https://www.imdb.com"
	DefaultMinInterval    = 3 * time.Second
	DefaultMaxResults     = 50
	DefaultUserAgent      = "Mozilla/5.0 (compatible; trawler)"
	DefaultAcceptLanguage = "en-US,en;q=0.8"
)

// SearchResult carries the candidates discovered for one query. Perfect is
// set when the search redirected straight to a canonical title page; the
// single candidate then already carries score 1.0 and needs no ranking.
type SearchResult struct {
	Candidates []match.Candidate
	Perfect    bool
}

// Client queries the movie database for candidate matches. All requests to
// the same host are spaced by at least the configured interval.
type Client struct {
	baseURL        string
	userAgent      string
	acceptLanguage string
	maxResults     int
	httpClient     *http.Client
	limiter        *hostLimiter
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMinInterval sets the minimum delay between requests to the same host.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.limiter = newHostLimiter(interval)
	}
}

// WithMaxResults caps how many ranked results are considered per search.
func WithMaxResults(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxResults = limit
		}
	}
}

// WithHeaders overrides the User-Agent and Accept-Language headers.
func WithHeaders(userAgent, acceptLanguage string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userAgent) != "" {
			c.userAgent = userAgent
		}
		if strings.TrimSpace(acceptLanguage) != "" {
			c.acceptLanguage = acceptLanguage
		}
	}
}

// WithLogger attaches a logger for per-request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "imdb")
	}
}

// New creates a search client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("imdb base url required")
	}
	client := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		maxResults:     DefaultMaxResults,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		limiter:        newHostLimiter(DefaultMinInterval),
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search returns candidates for name in discovery order. A redirect landing
// on a canonical title page short-circuits to a single perfect candidate.
func (c *Client) Search(ctx context.Context, name string) (*SearchResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, match.ErrInvalidQuery
	}

	endpoint, err := url.Parse(c.baseURL + "/find/")
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	params := url.Values{}
	params.Set("q", name)
	params.Set("s", "tt")
	endpoint.RawQuery = params.Encode()

	doc, finalURL, err := c.fetch(ctx, endpoint.String())
	if err != nil {
		return nil, err
	}

	// A perfect hit redirects straight to the title page.
	if m := titlePathRe.FindStringSubmatch(finalURL.Path); m != nil {
		id := m[1]
		c.logger.Debug("perfect hit, search redirected to title page",
			logging.String("query", name),
			logging.String("id", id))
		title, err := parseTitle(doc, id, c.titleURL(id))
		if err != nil {
			return nil, err
		}
		return &SearchResult{
			Candidates: []match.Candidate{{
				Name:      title.Name,
				ID:        title.ID,
				URL:       title.URL,
				Year:      title.Year,
				Thumbnail: title.Photo,
				Score:     1.0,
				Position:  0,
			}},
			Perfect: true,
		}, nil
	}

	candidates, err := c.parseFindResults(doc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("search completed",
		logging.String("query", name),
		logging.Int("candidates", len(candidates)))
	return &SearchResult{Candidates: candidates}, nil
}

// Title fetches and parses a title detail page by id.
func (c *Client) Title(ctx context.Context, id string) (*Title, error) {
	if !IsTitleID(id) {
		return nil, fmt.Errorf("invalid title id %q", id)
	}
	doc, _, err := c.fetch(ctx, c.titleURL(id))
	if err != nil {
		return nil, err
	}
	return parseTitle(doc, id, c.titleURL(id))
}

func (c *Client) fetch(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse url: %w", err)
	}
	if err := c.limiter.Wait(ctx, parsed.Host); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.acceptLanguage)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("imdb returned %d (latency=%v)", resp.StatusCode, latency)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parse response body: %w", err)
	}
	return doc, resp.Request.URL, nil
}

func (c *Client) titleURL(id string) string {
	return c.baseURL + "/title/" + id + "/"
}
