package hierarchy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bloodstock/internal/model"
)

func sampleHierarchy() *model.Hierarchy {
	return &model.Hierarchy{
		States: map[string]string{"MH": "Maharashtra", "WB": "West Bengal"},
		Districts: map[string]map[string]string{
			"MH": {"521": "Pune"},
			"WB": {"801": "Rampur Hat", "802": "Kolkata"},
		},
		BloodGroups:     map[string]string{"15": "O+Ve"},
		BloodComponents: map[string]string{"10": "Whole Blood"},
	}
}

// fakeFetcher counts calls and optionally blocks until released.
type fakeFetcher struct {
	calls atomic.Int32
	h     *model.Hierarchy
	err   error
	delay time.Duration
}

func (f *fakeFetcher) FetchHierarchy(_ context.Context) (*model.Hierarchy, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.h, f.err
}

func TestFileStore_SaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.json")
	store := NewFileStore(path)

	want := sampleHierarchy()
	require.NoError(t, store.Save(want))

	got := store.Load()
	assert.Equal(t, want, got)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	h := store.Load()
	require.NotNil(t, h)
	assert.True(t, IsEmpty(h))
	assert.NotNil(t, h.Districts)
}

func TestFileStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	assert.True(t, IsEmpty(NewFileStore(path).Load()))
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"states": {"MH": `), 0o644))

	assert.True(t, IsEmpty(NewFileStore(path).Load()))
}

func TestFileStore_LoadLegacyEmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	h := NewFileStore(path).Load()
	assert.True(t, IsEmpty(h))
	assert.NotNil(t, h.States)
}

func TestFileStore_SaveOverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hierarchy.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(sampleHierarchy()))
	second := &model.Hierarchy{States: map[string]string{"AP": "Andhra Pradesh"}}
	require.NoError(t, store.Save(second))

	got := store.Load()
	assert.Equal(t, map[string]string{"AP": "Andhra Pradesh"}, got.States)
	assert.Empty(t, got.Districts)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hierarchy.json", entries[0].Name())
}

func TestFileStore_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache", "hierarchy.json")
	require.NoError(t, NewFileStore(path).Save(sampleHierarchy()))
	assert.FileExists(t, path)
}

func TestFileStore_FailedSaveKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hierarchy.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(sampleHierarchy()))

	assert.Error(t, store.Save(nil))
	assert.Equal(t, sampleHierarchy(), store.Load())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(model.NewHierarchy()))
	assert.True(t, IsEmpty(&model.Hierarchy{BloodGroups: map[string]string{"15": "O+Ve"}}))
	assert.False(t, IsEmpty(sampleHierarchy()))
}

func TestLoader_CacheHitSkipsFetch(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	require.NoError(t, store.Save(sampleHierarchy()))
	f := &fakeFetcher{}

	h, err := NewLoader(store, f).Warm(context.Background())

	require.NoError(t, err)
	assert.Equal(t, sampleHierarchy(), h)
	assert.Zero(t, f.calls.Load())
}

func TestLoader_ColdStartFetchesAndSaves(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	f := &fakeFetcher{h: sampleHierarchy()}
	l := NewLoader(store, f)

	h, err := l.Warm(context.Background())

	require.NoError(t, err)
	assert.Equal(t, sampleHierarchy(), h)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, sampleHierarchy(), store.Load())
	assert.Same(t, h, l.Current())

	// Warm again is served from memory.
	again, err := l.Warm(context.Background())
	require.NoError(t, err)
	assert.Same(t, h, again)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestLoader_ConcurrentWarmFetchesOnce(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	f := &fakeFetcher{h: sampleHierarchy(), delay: 50 * time.Millisecond}
	l := NewLoader(store, f)

	var wg sync.WaitGroup
	results := make([]*model.Hierarchy, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := l.Warm(context.Background())
			assert.NoError(t, err)
			results[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for _, h := range results {
		assert.Same(t, results[0], h)
	}
}

func TestLoader_FetchErrorReturnsEmptyAndRetries(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	f := &fakeFetcher{err: errors.New("site down")}
	l := NewLoader(store, f)

	h, err := l.Warm(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site down")
	require.NotNil(t, h)
	assert.True(t, IsEmpty(h))
	assert.Nil(t, l.Current())
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr), "failed cold fetch must not write a snapshot")

	f.err = nil
	f.h = sampleHierarchy()
	h, err = l.Warm(context.Background())
	require.NoError(t, err)
	assert.False(t, IsEmpty(h))
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestLoader_EmptyFetchIsAnError(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	l := NewLoader(store, &fakeFetcher{h: model.NewHierarchy()})

	h, err := l.Warm(context.Background())
	require.Error(t, err)
	assert.True(t, IsEmpty(h))
}

func TestLoader_NoFetcher(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))

	h, err := NewLoader(store, nil).Warm(context.Background())
	require.Error(t, err)
	assert.True(t, IsEmpty(h))
}

func TestLoader_RefreshReplacesSnapshot(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	require.NoError(t, store.Save(sampleHierarchy()))
	fresh := &model.Hierarchy{States: map[string]string{"AP": "Andhra Pradesh"}}
	l := NewLoader(store, &fakeFetcher{h: fresh})

	_, err := l.Warm(context.Background())
	require.NoError(t, err)

	h, err := l.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Andhra Pradesh", h.States["AP"])
	assert.Same(t, h, l.Current())
	assert.Equal(t, fresh.States, store.Load().States)
}

func TestLoader_RefreshErrorKeepsCurrent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hierarchy.json"))
	require.NoError(t, store.Save(sampleHierarchy()))
	l := NewLoader(store, &fakeFetcher{err: errors.New("timeout")})

	warm, err := l.Warm(context.Background())
	require.NoError(t, err)

	h, err := l.Refresh(context.Background())
	require.Error(t, err)
	assert.Nil(t, h)
	assert.Same(t, warm, l.Current())
}

func TestImportYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	seed := `
states:
  MH: Maharashtra
districts:
  MH:
    "521": Pune
blood_groups:
  "15": O+Ve
`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	h, err := ImportYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "Maharashtra", h.States["MH"])
	assert.Equal(t, "Pune", h.Districts["MH"]["521"])
	assert.Equal(t, "O+Ve", h.BloodGroups["15"])
	assert.NotNil(t, h.BloodComponents)
}

func TestImportYAML_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ImportYAML(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("blood_groups:\n  \"15\": O+Ve\n"), 0o644))
	_, err = ImportYAML(empty)
	assert.ErrorContains(t, err, "no states")

	orphan := filepath.Join(dir, "orphan.yaml")
	require.NoError(t, os.WriteFile(orphan, []byte("states:\n  MH: Maharashtra\ndistricts:\n  ZZ:\n    \"1\": Nowhere\n"), 0o644))
	_, err = ImportYAML(orphan)
	assert.ErrorContains(t, err, "unknown state")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("states: [unterminated"), 0o644))
	_, err = ImportYAML(bad)
	assert.Error(t, err)
}
