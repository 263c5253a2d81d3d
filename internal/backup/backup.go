// Package backup guards every rewrite: a file is only ever overwritten after
// its original bytes exist in a sibling backup whose hash was recorded.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrBackupExists means a sibling backup is already on disk. The file was
// fixed by an earlier run; running fixes again would overwrite the only
// pristine copy, so the caller skips the file instead.
var ErrBackupExists = errors.New("backup already exists")

// Record describes one snapshot.
type Record struct {
	Original string
	Backup   string
	Hash     uint64
	Taken    time.Time
	Size     int64
}

// Manager takes snapshots and restores them. Safe for concurrent use; the
// worker pool snapshots from many goroutines.
type Manager struct {
	suffix  string
	enabled bool

	mu      sync.Mutex
	records map[string]*Record
}

func NewManager(suffix string, enabled bool) *Manager {
	if suffix == "" {
		suffix = ".bak"
	}
	return &Manager{
		suffix:  suffix,
		enabled: enabled,
		records: make(map[string]*Record),
	}
}

func (m *Manager) BackupPath(path string) string { return path + m.suffix }

// Snapshot copies path's current content to its sibling backup and records
// the content hash. Returns ErrBackupExists when a backup is already
// present.
func (m *Manager) Snapshot(path string) (*Record, error) {
	if !m.enabled {
		return nil, nil
	}
	bak := m.BackupPath(path)
	if _, err := os.Lstat(bak); err == nil {
		return nil, fmt.Errorf("%s: %w", bak, ErrBackupExists)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for backup: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.WriteFile(bak, data, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("failed to write backup %s: %w", bak, err)
	}

	rec := &Record{
		Original: path,
		Backup:   bak,
		Hash:     xxhash.Sum64(data),
		Taken:    time.Now(),
		Size:     int64(len(data)),
	}
	m.mu.Lock()
	m.records[path] = rec
	m.mu.Unlock()
	return rec, nil
}

// Write replaces path's content. With backups enabled it refuses to touch a
// file that has no recorded snapshot. The write goes through a temp file and
// rename so a crash never leaves partial content.
func (m *Manager) Write(path string, data []byte) error {
	if m.enabled {
		m.mu.Lock()
		_, ok := m.records[path]
		m.mu.Unlock()
		if !ok {
			return fmt.Errorf("refusing to write %s: no snapshot recorded", path)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".luaopt-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Revert restores path from its sibling backup and removes the backup.
func (m *Manager) Revert(path string) error {
	bak := m.BackupPath(path)
	data, err := os.ReadFile(bak)
	if err != nil {
		return fmt.Errorf("no backup for %s: %w", path, err)
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}
	if err := os.Remove(bak); err != nil {
		return fmt.Errorf("restored %s but failed to remove %s: %w", path, bak, err)
	}
	m.mu.Lock()
	delete(m.records, path)
	m.mu.Unlock()
	return nil
}

// List enumerates backups under root, sorted by original path.
func (m *Manager) List(root string) ([]Record, error) {
	var out []Record
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, m.suffix) {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, Record{
			Original: strings.TrimSuffix(path, m.suffix),
			Backup:   path,
			Hash:     xxhash.Sum64(data),
			Taken:    info.ModTime(),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list backups under %s: %w", root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Original < out[j].Original })
	return out, nil
}

// RevertAll restores every backup under root. It keeps going past
// individual failures and reports the first error at the end.
func (m *Manager) RevertAll(root string) (int, error) {
	recs, err := m.List(root)
	if err != nil {
		return 0, err
	}
	restored := 0
	var firstErr error
	for _, r := range recs {
		if err := m.Revert(r.Original); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		restored++
	}
	return restored, firstErr
}

// Clean deletes every backup under root without restoring.
func (m *Manager) Clean(root string) (int, error) {
	recs, err := m.List(root)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range recs {
		if err := os.Remove(r.Backup); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", r.Backup, err)
		}
		removed++
	}
	return removed, nil
}
