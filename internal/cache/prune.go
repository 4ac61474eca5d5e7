package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type entry struct {
	path    string
	modTime time.Time
}

func listEntries(dir string) ([]entry, error) {
	var out []entry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, entry{path: path, modTime: info.ModTime()})
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return out, err
}

// PurgeByAge removes entries whose mtime is older than maxAge. A
// non-positive maxAge disables purging.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 || dir == "" {
		return 0, nil
	}
	entries, err := listEntries(dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.modTime.Before(cutoff) && os.Remove(e.path) == nil {
			removed++
		}
	}
	return removed, nil
}

// EnforceLimit keeps at most maxEntries entries, evicting the least recently
// used first. A non-positive maxEntries disables the limit.
func EnforceLimit(dir string, maxEntries int) (int, error) {
	if maxEntries <= 0 || dir == "" {
		return 0, nil
	}
	entries, err := listEntries(dir)
	if err != nil {
		return 0, err
	}
	if len(entries) <= maxEntries {
		return 0, nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.Before(entries[j].modTime) })
	removed := 0
	for _, e := range entries[:len(entries)-maxEntries] {
		if os.Remove(e.path) == nil {
			removed++
		}
	}
	return removed, nil
}
