// Package registry maps on-disk job source files to namespaces and
// loads the job definitions they export. The registry itself is a small
// ordered JSON list mutated only by explicit user commands, so unlike
// the state store it needs no cross-process locking.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/channel4/cron-burgundy/internal/jobid"
)

// Entry is one registered job source file.
type Entry struct {
	Path      string `json:"path"`
	Namespace string `json:"namespace,omitempty"`
}

// Outcome reports what a register/unregister call actually did.
type Outcome string

const (
	Added    Outcome = "added"
	Updated  Outcome = "updated"
	Exists   Outcome = "exists"
	Removed  Outcome = "removed"
	NotFound Outcome = "not_found"
)

// Registry reads and writes the ordered source-file list.
type Registry struct {
	path string
}

// New creates a Registry persisted at the given path.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Entries loads the registry. A missing file yields an empty list. A
// legacy registry (a bare JSON list of path strings) is promoted to the
// entry shape in memory; the promoted form reaches disk on the next
// save. Both racers of that one-shot migration write identical content,
// so last-write-wins is harmless.
func (r *Registry) Entries() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registry: reading %s: %w", r.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}

	var legacy []string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("registry: corrupt registry file %s", r.path)
	}
	entries = make([]Entry, 0, len(legacy))
	for _, p := range legacy {
		entries = append(entries, Entry{Path: p})
	}
	return entries, nil
}

func (r *Registry) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encoding registry: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("registry: creating registry directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("registry: writing %s: %w", r.path, err)
	}
	return nil
}

// Register adds a source file to the registry or updates its namespace
// in place. Idempotent: re-registering with an unchanged namespace
// reports Exists.
func (r *Registry) Register(path, namespace string) (Outcome, error) {
	if err := jobid.ValidateNamespace(namespace); err != nil {
		return "", fmt.Errorf("registry: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("registry: resolving %s: %w", path, err)
	}

	entries, err := r.Entries()
	if err != nil {
		return "", err
	}
	for i, e := range entries {
		if e.Path != abs {
			continue
		}
		if e.Namespace == namespace {
			return Exists, nil
		}
		entries[i].Namespace = namespace
		return Updated, r.save(entries)
	}
	entries = append(entries, Entry{Path: abs, Namespace: namespace})
	return Added, r.save(entries)
}

// Unregister removes a source file from the registry.
func (r *Registry) Unregister(path string) (Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("registry: resolving %s: %w", path, err)
	}

	entries, err := r.Entries()
	if err != nil {
		return "", err
	}
	for i, e := range entries {
		if e.Path == abs {
			entries = append(entries[:i], entries[i+1:]...)
			return Removed, r.save(entries)
		}
	}
	return NotFound, nil
}

// Find returns the registered entry for a path, if any.
func (r *Registry) Find(path string) (Entry, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Entry{}, false, fmt.Errorf("registry: resolving %s: %w", path, err)
	}
	entries, err := r.Entries()
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Path == abs {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}
