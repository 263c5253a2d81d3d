package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BulkSnapshot archives files into a single timestamp-named zip at root,
// preserving paths relative to root. It is the one-shot safety net taken
// before a whole-tree fix run.
func BulkSnapshot(root string, files []string) (string, error) {
	name := fmt.Sprintf("luaopt_backup_%s.zip", time.Now().Format("20060102_150405"))
	archivePath := filepath.Join(root, name)

	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive %s: %w", archivePath, err)
	}
	zw := zip.NewWriter(f)

	fail := func(err error) (string, error) {
		zw.Close()
		f.Close()
		os.Remove(archivePath)
		return "", err
	}

	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		src, err := os.Open(path)
		if err != nil {
			return fail(fmt.Errorf("failed to open %s for archiving: %w", path, err))
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			src.Close()
			return fail(fmt.Errorf("failed to add %s to archive: %w", rel, err))
		}
		if _, err := io.Copy(w, src); err != nil {
			src.Close()
			return fail(fmt.Errorf("failed to archive %s: %w", rel, err))
		}
		src.Close()
	}

	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to finalize archive %s: %w", archivePath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive %s: %w", archivePath, err)
	}
	return archivePath, nil
}
