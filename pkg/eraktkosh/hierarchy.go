package eraktkosh

import (
	"context"
	"net/url"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bloodstock/internal/model"
)

// FetchHierarchy reads the landing page vocabularies, then the district list
// of every state in parallel. A state whose districts cannot be fetched is
// logged and left without districts.
func (c *httpClient) FetchHierarchy(ctx context.Context) (*model.Hierarchy, error) {
	s, err := c.openSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	h := model.NewHierarchy()
	h.States = parseSelect(s.landing, stateSelect)
	h.BloodGroups = parseSelect(s.landing, groupSelect)
	h.BloodComponents = parseSelect(s.landing, componentSelect)
	if len(h.States) == 0 {
		return nil, eris.New("eraktkosh: no states found on landing page")
	}

	log := zap.L().With(zap.String("source", "eraktkosh"))
	log.Info("fetching districts",
		zap.Int("states", len(h.States)),
		zap.Int("concurrency", c.concurrency),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, code := range h.StateCodes() {
		name := h.States[code]
		g.Go(func() error {
			districts, err := s.fetchDistricts(gctx, code)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("skipping state: district fetch failed",
					zap.String("state_code", code),
					zap.String("state", name),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			h.Districts[code] = districts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "eraktkosh: fetch hierarchy")
	}

	log.Info("hierarchy fetched",
		zap.Int("states", len(h.States)),
		zap.Int("districts", h.DistrictCount()),
		zap.Int("blood_groups", len(h.BloodGroups)),
		zap.Int("blood_components", len(h.BloodComponents)),
	)
	return h, nil
}

func (s *session) fetchDistricts(ctx context.Context, stateCode string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.c.stateTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("hmode", "GETDISTRICTLIST")
	params.Set("stateCode", stateCode)

	body, err := s.c.get(ctx, s.http, landingPath, params)
	if err != nil {
		return nil, eris.Wrapf(err, "eraktkosh: districts for state %s", stateCode)
	}
	return parseDistricts(string(body)), nil
}
