package registry

import (
	"errors"
	"fmt"

	"github.com/channel4/cron-burgundy/internal/jobid"
)

// Source is one registered file together with its loaded definitions.
// A file that fails to load carries Err instead of Jobs, so a single
// broken file never hides the others.
type Source struct {
	File      string
	Namespace string
	Jobs      []Definition
	Err       error
}

// QualifiedID returns the qualified id for one of this source's jobs.
func (s Source) QualifiedID(id string) string {
	return jobid.Qualify(id, s.Namespace)
}

// ErrJobNotFound is returned when no registered source declares the
// requested job.
var ErrJobNotFound = errors.New("registry: job not found")

// LoadAll loads every registered source file in registry order.
func (r *Registry) LoadAll() ([]Source, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(entries))
	for _, e := range entries {
		src := Source{File: e.Path, Namespace: e.Namespace}
		src.Jobs, src.Err = LoadFile(e.Path)
		sources = append(sources, src)
	}
	return sources, nil
}

// FindJob resolves a job reference: "ns/id" requires an exact namespace
// match, a bare id returns the first match across all sources in
// registry order. Sources that fail to load are skipped.
func (r *Registry) FindJob(ref string) (Definition, Source, error) {
	sources, err := r.LoadAll()
	if err != nil {
		return Definition{}, Source{}, err
	}

	ns, id := jobid.Parse(ref)
	for _, src := range sources {
		if src.Err != nil {
			continue
		}
		if ns != "" && src.Namespace != ns {
			continue
		}
		for _, d := range src.Jobs {
			if d.ID == id {
				return d, src, nil
			}
		}
	}
	return Definition{}, Source{}, fmt.Errorf("%w: %q", ErrJobNotFound, ref)
}
