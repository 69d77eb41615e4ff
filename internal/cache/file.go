package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"geneagrapher/internal/record"
)

// FileCache implements record.Cache using one JSON file per id under
// CacheDir, namespaced by the low byte of the id to avoid an
// unbounded number of entries in a single directory (spec §6's
// "collision-free namespaced key per id" convention).
//
// Structure:
//
//	{CacheDir}/{id & 0xff, 2 hex digits}/{id}.json
//
// A file containing the JSON literal `null` encodes a null hit
// (id observed non-existent).
type FileCache struct {
	CacheDir string
}

// NewFileCache creates a filesystem-backed cache rooted at dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{CacheDir: dir}
}

func (c *FileCache) entryPath(id record.ID) string {
	shard := fmt.Sprintf("%02x", uint64(id)&0xff)
	return filepath.Join(c.CacheDir, shard, fmt.Sprintf("%d.json", int64(id)))
}

func (c *FileCache) Get(id record.ID) (hit bool, rec *record.Record, err error) {
	path := c.entryPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("cache: reading %s: %w", path, err)
	}

	var r *record.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return false, nil, fmt.Errorf("cache: decoding %s: %w", path, err)
	}
	return true, r, nil
}

func (c *FileCache) Set(id record.ID, rec *record.Record) error {
	path := c.entryPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: creating directory for %s: %w", path, err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: encoding entry for id %d: %w", id, err)
	}

	return writeFileAtomic(path, data, 0o644)
}

// writeFileAtomic writes data to a temp file in the same directory as
// path, then renames it into place, so a crash mid-write never leaves
// a corrupt cache entry. Grounded on the teacher's
// internal/core.writeFileAtomic.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
