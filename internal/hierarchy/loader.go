package hierarchy

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/bloodstock/internal/model"
)

// Fetcher performs a full cold fetch of the hierarchy from the stock source.
type Fetcher interface {
	FetchHierarchy(ctx context.Context) (*model.Hierarchy, error)
}

// Loader owns the startup sequence: load the snapshot, cold-fetch and save
// when it is empty. Concurrent callers share a single warm-up.
type Loader struct {
	store   *FileStore
	fetcher Fetcher

	group   singleflight.Group
	mu      sync.Mutex
	current *model.Hierarchy
}

// NewLoader creates a Loader. fetcher may be nil, in which case an empty
// snapshot stays empty.
func NewLoader(store *FileStore, fetcher Fetcher) *Loader {
	return &Loader{store: store, fetcher: fetcher}
}

// Current returns the warmed hierarchy, or nil before Warm has succeeded.
func (l *Loader) Current() *model.Hierarchy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Warm returns the process-wide hierarchy, loading it on first use. When
// the cold fetch fails the empty hierarchy is returned together with the
// error so callers can keep running in degraded mode; a later Warm retries.
func (l *Loader) Warm(ctx context.Context) (*model.Hierarchy, error) {
	if h := l.Current(); h != nil {
		return h, nil
	}
	v, err, _ := l.group.Do("warm", func() (any, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.current != nil {
			return l.current, nil
		}

		h := l.store.Load()
		if !IsEmpty(h) {
			zap.L().Info("hierarchy: cache hit",
				zap.String("path", l.store.Path()),
				zap.Int("states", len(h.States)),
				zap.Int("districts", h.DistrictCount()),
			)
			l.current = h
			return h, nil
		}

		zap.L().Info("hierarchy: cache miss, warming from source")
		fetched, err := l.coldFetch(ctx)
		if err != nil {
			return h, err
		}
		l.current = fetched
		return fetched, nil
	})
	return v.(*model.Hierarchy), err
}

// Refresh forces a cold fetch and replaces the snapshot.
func (l *Loader) Refresh(ctx context.Context) (*model.Hierarchy, error) {
	v, err, _ := l.group.Do("refresh", func() (any, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		fetched, err := l.coldFetch(ctx)
		if err != nil {
			return (*model.Hierarchy)(nil), err
		}
		l.current = fetched
		return fetched, nil
	})
	return v.(*model.Hierarchy), err
}

// coldFetch fetches from the source and saves a non-empty result. Callers
// hold l.mu.
func (l *Loader) coldFetch(ctx context.Context) (*model.Hierarchy, error) {
	if l.fetcher == nil {
		return nil, eris.New("hierarchy: no fetcher configured for cold start")
	}

	start := time.Now()
	h, err := l.fetcher.FetchHierarchy(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "hierarchy: cold fetch")
	}
	if IsEmpty(h) {
		return nil, eris.New("hierarchy: cold fetch returned no states")
	}
	h.Fill()

	if err := l.store.Save(h); err != nil {
		// The fetched data is still usable for this process.
		zap.L().Warn("hierarchy: save snapshot failed", zap.Error(err))
	}

	zap.L().Info("hierarchy: warm complete",
		zap.Int("states", len(h.States)),
		zap.Int("districts", h.DistrictCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return h, nil
}
