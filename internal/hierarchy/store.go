// Package hierarchy persists and warms the cached state/district/blood
// vocabulary used for query resolution.
package hierarchy

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/model"
)

// FileStore keeps the hierarchy snapshot as a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing, empty or unreadable file is a cold
// start and yields an empty hierarchy; Load never fails.
func (s *FileStore) Load() *model.Hierarchy {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("hierarchy: read snapshot failed, starting cold",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return model.NewHierarchy()
	}
	if len(data) == 0 {
		return model.NewHierarchy()
	}

	var h model.Hierarchy
	if err := json.Unmarshal(data, &h); err != nil {
		zap.L().Warn("hierarchy: snapshot is corrupt, starting cold",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return model.NewHierarchy()
	}
	return h.Fill()
}

// Save writes h to a temp file next to the snapshot and renames it into
// place, so readers see either the old or the new snapshot in full.
func (s *FileStore) Save(h *model.Hierarchy) error {
	if h == nil {
		return eris.New("hierarchy: save nil hierarchy")
	}
	data, err := json.MarshalIndent(h.Fill(), "", "  ")
	if err != nil {
		return eris.Wrap(err, "hierarchy: marshal snapshot")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "hierarchy: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".hierarchy-*.tmp")
	if err != nil {
		return eris.Wrap(err, "hierarchy: create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "hierarchy: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "hierarchy: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "hierarchy: close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return eris.Wrapf(err, "hierarchy: rename into %s", s.path)
	}

	zap.L().Debug("hierarchy: snapshot saved",
		zap.String("path", s.path),
		zap.Int("states", len(h.States)),
		zap.Int("districts", h.DistrictCount()),
	)
	return nil
}

// IsEmpty reports whether h has no states.
func IsEmpty(h *model.Hierarchy) bool {
	return h == nil || len(h.States) == 0
}
