package eraktkosh

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/model"
	"github.com/sells-group/bloodstock/internal/resilience"
)

// ErrSessionClosed is returned by FetchStock after Close.
var ErrSessionClosed = eris.New("eraktkosh: session closed")

type session struct {
	c       *httpClient
	http    *http.Client
	landing string

	mu     sync.Mutex
	closed bool
}

// NewSession primes the landing page so the portal issues its session
// cookie, and returns a session bound to that cookie.
func (c *httpClient) NewSession(ctx context.Context) (Session, error) {
	return c.openSession(ctx)
}

func (c *httpClient) openSession(ctx context.Context) (*session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "eraktkosh: create cookie jar")
	}
	hc := &http.Client{
		Transport: c.http.Transport,
		Timeout:   c.http.Timeout,
		Jar:       jar,
	}

	body, err := c.get(ctx, hc, landingPath, nil)
	if err != nil {
		return nil, eris.Wrap(err, "eraktkosh: open session")
	}
	return &session{c: c, http: hc, landing: string(body)}, nil
}

// FetchStock pages through the stock table until the portal runs out of
// rows or the page cap is reached. Exceeding the stock timeout returns an
// empty result, even when earlier pages were read; cancellation of ctx and
// every other failure is returned as an error.
func (s *session) FetchStock(ctx context.Context, q model.StockQuery) ([]model.StockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if q.StateCode == "" || q.BloodGroupCode == "" {
		return nil, eris.New("eraktkosh: state and blood group codes are required")
	}
	district := q.DistrictCode
	if district == "" {
		district = "-1"
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.c.stockTimeout)
	defer cancel()

	log := zap.L().With(
		zap.String("source", "eraktkosh"),
		zap.String("state_code", q.StateCode),
		zap.String("district_code", district),
		zap.String("blood_group", q.BloodGroupCode),
	)

	results := make([]model.StockResult, 0)
	start := 0
	for page := 0; page < s.c.maxPages; page++ {
		params := url.Values{}
		params.Set("hmode", "GETNEARBYSTOCKDETAILS")
		params.Set("stateCode", q.StateCode)
		params.Set("districtCode", district)
		params.Set("bloodGroup", q.BloodGroupCode)
		params.Set("bloodComponent", q.BloodComponentCode)
		params.Set("lang", "0")
		params.Set("draw", strconv.Itoa(page+1))
		params.Set("start", strconv.Itoa(start))
		params.Set("length", strconv.Itoa(s.c.pageSize))

		body, err := s.c.get(fetchCtx, s.http, stockPath, params)
		if err != nil {
			if ctx.Err() == nil && (fetchCtx.Err() != nil || resilience.IsTimeout(err)) {
				log.Warn("timed out waiting for stock results, discarding partial rows",
					zap.Int("page", page),
					zap.Int("rows", len(results)),
				)
				return []model.StockResult{}, nil
			}
			return nil, eris.Wrap(err, "eraktkosh: fetch stock")
		}

		p, err := parseStockPage(body)
		if err != nil {
			return nil, err
		}
		results = append(results, p.rows()...)

		start += len(p.Data)
		// A zero recordsTotal means the source did not report one.
		if len(p.Data) < s.c.pageSize || (p.RecordsTotal > 0 && start >= int(p.RecordsTotal)) {
			break
		}
	}

	log.Debug("stock fetched", zap.Int("rows", len(results)))
	return results, nil
}

// Close releases the session. It is safe to call more than once.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.http.Jar = nil
	s.landing = ""
	return nil
}
