// Package eraktkosh provides a client for the eRaktKosh blood stock
// availability portal.
package eraktkosh

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bloodstock/internal/model"
	"github.com/sells-group/bloodstock/internal/resilience"
)

// DefaultBaseURL is the public eRaktKosh host.
const DefaultBaseURL = "https://eraktkosh.mohfw.gov.in"

const (
	landingPath  = "/BLDAHIMS/bloodbank/stockAvailability.cnt"
	stockPath    = "/BLDAHIMS/bloodbank/nearbyBB.cnt"
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes = 4 << 20
)

// Client defines the eRaktKosh operations.
type Client interface {
	// FetchHierarchy scrapes every state, its districts, and the blood
	// group and component vocabularies.
	FetchHierarchy(ctx context.Context) (*model.Hierarchy, error)
	// NewSession opens a cookie-scoped session for stock queries. Callers
	// must Close it.
	NewSession(ctx context.Context) (Session, error)
}

// Session is a single server-side session against the portal.
type Session interface {
	// FetchStock returns matching blood bank rows. An empty slice means the
	// portal reported no records.
	FetchStock(ctx context.Context, q model.StockQuery) ([]model.StockResult, error)
	Close() error
}

// Option configures the eRaktKosh client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client whose transport and timeout sessions
// reuse. Sessions always install their own cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout, keeping the configured transport.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d <= 0 {
			return
		}
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithRateLimit paces requests to rps with the given burst. rps <= 0
// disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithBreaker sets the circuit breaker shared by every request.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

// WithMaxPages caps the number of result pages read per stock query.
func WithMaxPages(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithPageSize sets the number of rows requested per page.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithConcurrency limits parallel district fetches during FetchHierarchy.
func WithConcurrency(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithStateTimeout bounds the district fetch of a single state.
func WithStateTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.stateTimeout = d
		}
	}
}

// WithStockTimeout bounds a single stock query. Hitting it yields whatever
// rows were read so far instead of an error.
func WithStockTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.stockTimeout = d
		}
	}
}

// WithUserAgent overrides the browser user agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	retry        resilience.RetryConfig
	breaker      *resilience.Breaker
	maxPages     int
	pageSize     int
	concurrency  int
	stateTimeout time.Duration
	stockTimeout time.Duration
	userAgent    string
}

// NewClient creates a new eRaktKosh client.
func NewClient(opts ...Option) Client {
	return newClient(opts...)
}

func newClient(opts ...Option) *httpClient {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:      rate.NewLimiter(rate.Limit(2), 4),
		retry:        resilience.DefaultRetryConfig(),
		breaker:      resilience.NewBreaker("eraktkosh", 5, 30*time.Second),
		maxPages:     5,
		pageSize:     10,
		concurrency:  4,
		stateTimeout: 20 * time.Second,
		stockTimeout: 30 * time.Second,
		userAgent:    userAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("eraktkosh", "request")
	}
	return c
}

// get issues a paced, retried, breaker-guarded GET and returns the body.
func (c *httpClient) get(ctx context.Context, hc *http.Client, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "eraktkosh: rate limit wait")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, eris.Wrap(err, "eraktkosh: create request")
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
			req.Header.Set("X-Requested-With", "XMLHttpRequest")

			resp, err := hc.Do(req)
			if err != nil {
				return nil, eris.Wrap(err, "eraktkosh: request failed")
			}
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if err != nil {
				return nil, resilience.NewTransientError(eris.Wrap(err, "eraktkosh: read body"), 0)
			}

			if resilience.IsTransientStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(
					eris.Errorf("eraktkosh: status %d: %s", resp.StatusCode, snippet(body)),
					resp.StatusCode,
				)
			}
			if resp.StatusCode >= 400 {
				return nil, eris.Errorf("eraktkosh: status %d: %s", resp.StatusCode, snippet(body))
			}
			return body, nil
		})
	})
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
