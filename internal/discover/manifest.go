package discover

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// readManifest pulls the string-valued metadata fields out of a resource
// manifest. Manifests are Lua, but the metadata lines are simple enough
// that a line scan covers real-world files.
func readManifest(dir string) ManifestInfo {
	info := ManifestInfo{Name: filepath.Base(dir)}
	for _, m := range []string{manifestModern, manifestLegacy} {
		f, err := os.Open(filepath.Join(dir, m))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case strings.HasPrefix(line, "name "), strings.HasPrefix(line, "name("):
				if v := quotedValue(line); v != "" {
					info.Name = v
				}
			case strings.HasPrefix(line, "version "), strings.HasPrefix(line, "version("):
				info.Version = quotedValue(line)
			case strings.HasPrefix(line, "author "), strings.HasPrefix(line, "author("):
				info.Author = quotedValue(line)
			case strings.HasPrefix(line, "description "), strings.HasPrefix(line, "description("):
				info.Description = quotedValue(line)
			}
		}
		f.Close()
		break
	}
	return info
}

// quotedValue extracts the first single- or double-quoted string on a line.
func quotedValue(line string) string {
	for _, q := range []byte{'\'', '"'} {
		start := strings.IndexByte(line, q)
		if start < 0 {
			continue
		}
		end := strings.IndexByte(line[start+1:], q)
		if end < 0 {
			continue
		}
		return line[start+1 : start+1+end]
	}
	return ""
}
