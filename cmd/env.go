package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/agent"
	"github.com/sells-group/bloodstock/internal/config"
	"github.com/sells-group/bloodstock/internal/hierarchy"
	"github.com/sells-group/bloodstock/internal/metrics"
	"github.com/sells-group/bloodstock/internal/resilience"
	"github.com/sells-group/bloodstock/pkg/eraktkosh"
)

// appEnv holds the warmed hierarchy, the stock source client and the tool
// service needed by the serve/resolve/stock commands.
type appEnv struct {
	Store   *hierarchy.FileStore
	Loader  *hierarchy.Loader
	Client  eraktkosh.Client
	Metrics *metrics.Metrics
	Service *agent.Service
}

// initEnv validates config for mode, warms the hierarchy and builds the
// service. A failed cold fetch leaves the service running on an empty
// hierarchy; every lookup then reports not found.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	client := newSourceClient(cfg)
	store := hierarchy.NewFileStore(cfg.Cache.Path)
	if err := seedCache(store, cfg.Cache.SeedFile); err != nil {
		return nil, err
	}

	loader := hierarchy.NewLoader(store, client)
	h, err := loader.Warm(ctx)
	if err != nil {
		zap.L().Warn("hierarchy unavailable, running degraded", zap.Error(err))
	}

	m := metrics.New()
	svc := agent.New(h, client,
		agent.WithMetrics(m),
		agent.WithDefaultComponent(cfg.Stock.DefaultComponent),
		agent.WithTimeout(seconds(cfg.Stock.TimeoutSecs)),
	)

	return &appEnv{
		Store:   store,
		Loader:  loader,
		Client:  client,
		Metrics: m,
		Service: svc,
	}, nil
}

// newSourceClient builds the eRaktKosh client from config.
func newSourceClient(c *config.Config) eraktkosh.Client {
	e := c.ERaktKosh
	return eraktkosh.NewClient(
		eraktkosh.WithBaseURL(e.BaseURL),
		eraktkosh.WithUserAgent(e.UserAgent),
		eraktkosh.WithTimeout(seconds(e.TimeoutSecs)),
		eraktkosh.WithRateLimit(e.RateLimit, e.RateBurst),
		eraktkosh.WithRetry(resilience.NewRetryConfig(e.RetryAttempts, e.RetryBackoffMs)),
		eraktkosh.WithBreaker(resilience.NewBreaker("eraktkosh", e.BreakerThreshold, seconds(e.BreakerResetSecs))),
		eraktkosh.WithMaxPages(e.MaxPages),
		eraktkosh.WithPageSize(e.PageSize),
		eraktkosh.WithConcurrency(e.Concurrency),
		eraktkosh.WithStateTimeout(seconds(e.StateTimeoutSecs)),
		eraktkosh.WithStockTimeout(seconds(e.StockTimeoutSecs)),
	)
}

// seedCache imports the YAML seed into an empty snapshot. It is a no-op
// without a seed file or when the snapshot already has states.
func seedCache(store *hierarchy.FileStore, seedFile string) error {
	if seedFile == "" || !hierarchy.IsEmpty(store.Load()) {
		return nil
	}
	h, err := hierarchy.ImportYAML(seedFile)
	if err != nil {
		return err
	}
	if err := store.Save(h); err != nil {
		return err
	}
	zap.L().Info("hierarchy seeded from yaml",
		zap.String("seed", seedFile),
		zap.Int("states", len(h.States)),
		zap.Int("districts", h.DistrictCount()),
	)
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
