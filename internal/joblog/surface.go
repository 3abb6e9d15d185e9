package joblog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry describes one log file found under the jobs log directory.
type Entry struct {
	QualifiedID string
	Path        string
	Size        int64
	Modified    time.Time
}

// List walks the per-job log directory and returns one Entry per live
// log file (rotated generations are folded into their live file's id).
func List(dir string) ([]Entry, error) {
	var out []Entry
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".log") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, Entry{
			QualifiedID: filepath.ToSlash(strings.TrimSuffix(rel, ".log")),
			Path:        path,
			Size:        info.Size(),
			Modified:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedID < out[j].QualifiedID })
	return out, nil
}

// Clear truncates the named log and removes its rotated generations.
func Clear(path string) error {
	w := NewWriter(path)
	for _, gen := range w.Generations() {
		if gen == path {
			if err := os.Truncate(gen, 0); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}
		if err := os.Remove(gen); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Prune removes log files (and their generations) whose live file has
// not been written for longer than maxAge. Returns the removed paths.
func Prune(dir string, maxAge time.Duration) ([]string, error) {
	entries, err := List(dir)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, e := range entries {
		if e.Modified.After(cutoff) {
			continue
		}
		for _, gen := range NewWriter(e.Path).Generations() {
			if err := os.Remove(gen); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed = append(removed, gen)
		}
	}
	return removed, nil
}
