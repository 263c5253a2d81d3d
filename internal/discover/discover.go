// Package discover finds FiveM resources and their Lua scripts. A resource
// is any directory holding an fxmanifest.lua or the legacy __resource.lua;
// direct mode bypasses manifests and takes every .lua under a path.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Resource is one discovered script container.
type Resource struct {
	Name    string // relative path including category folders, e.g. "[qb]/qb-core"
	Dir     string
	Scripts []string
	Info    ManifestInfo
}

// ManifestInfo carries the metadata fields commonly present in manifests.
type ManifestInfo struct {
	Name        string
	Version     string
	Author      string
	Description string
}

// Options controls discovery.
type Options struct {
	Root         string
	Direct       bool     // treat Root as a plain tree, no manifest detection
	Excludes     []string // doublestar patterns matched against /-relative paths
	BackupSuffix string   // files with this suffix are never scripts
}

const (
	manifestModern = "fxmanifest.lua"
	manifestLegacy = "__resource.lua"
)

// Discover returns resources sorted by name, each with its scripts sorted by
// path.
func Discover(opts Options) ([]Resource, error) {
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = ".bak"
	}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", opts.Root, err)
	}

	if opts.Direct || !info.IsDir() {
		return discoverDirect(opts, info)
	}

	if isResourceDir(opts.Root) {
		res, err := buildResource(opts, opts.Root, filepath.Base(opts.Root))
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		return []Resource{*res}, nil
	}

	var out []Resource
	seen := make(map[string]bool)
	err = filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != manifestModern && d.Name() != manifestLegacy {
			return nil
		}
		dir := filepath.Dir(path)
		if seen[dir] {
			return nil
		}
		seen[dir] = true
		res, err := buildResource(opts, dir, resourceName(opts.Root, dir))
		if err != nil {
			return err
		}
		if res != nil {
			out = append(out, *res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", opts.Root, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Files flattens resources into one sorted, de-duplicated path list.
func Files(resources []Resource) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range resources {
		for _, s := range r.Scripts {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func discoverDirect(opts Options, info fs.FileInfo) ([]Resource, error) {
	if !info.IsDir() {
		if !strings.HasSuffix(opts.Root, ".lua") {
			return nil, fmt.Errorf("%s is not a Lua script", opts.Root)
		}
		return []Resource{{
			Name:    "(direct)",
			Dir:     filepath.Dir(opts.Root),
			Scripts: []string{opts.Root},
			Info:    ManifestInfo{Name: "(direct)"},
		}}, nil
	}
	scripts, err := collectScripts(opts, opts.Root)
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, nil
	}
	return []Resource{{
		Name:    "(direct)",
		Dir:     opts.Root,
		Scripts: scripts,
		Info:    ManifestInfo{Name: filepath.Base(opts.Root)},
	}}, nil
}

func buildResource(opts Options, dir, name string) (*Resource, error) {
	scripts, err := collectScripts(opts, dir)
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, nil
	}
	return &Resource{
		Name:    name,
		Dir:     dir,
		Scripts: scripts,
		Info:    readManifest(dir),
	}, nil
}

func collectScripts(opts Options, dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".lua") || strings.HasSuffix(path, opts.BackupSuffix) {
			return nil
		}
		if excluded(opts, path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

func excluded(opts Options, path string) bool {
	rel, err := filepath.Rel(opts.Root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range opts.Excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

// resourceName keeps category folders in the name so two resources with the
// same directory name stay distinct.
func resourceName(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(dir)
	}
	return filepath.ToSlash(rel)
}

func isResourceDir(dir string) bool {
	for _, m := range []string{manifestModern, manifestLegacy} {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}
