package state

// PauseTarget is the sentinel accepted by Pause and Resume to address
// every job at once.
const PauseTarget = "all"

// PauseStatus is the decoded pause marker.
type PauseStatus struct {
	All  bool
	Jobs map[string]struct{}
}

// Pause pauses one qualified id, or every job when target is "all".
// Pausing all discards any per-job list. Pausing a specific id while
// everything is already paused changes nothing.
func (s *Store) Pause(target string) error {
	return s.Update(func(doc *Document) error {
		if target == PauseTarget {
			doc.PausedAll = true
			doc.PausedJobs = map[string]struct{}{}
			return nil
		}
		if doc.PausedAll {
			return nil
		}
		doc.PausedJobs[target] = struct{}{}
		return nil
	})
}

// Resume resumes one qualified id, or every job when target is "all".
// Resuming a specific id under a global pause is a deliberate no-op —
// the caller must resume "all" first; noop reports that case so the CLI
// can warn.
func (s *Store) Resume(target string) (noop bool, err error) {
	err = s.Update(func(doc *Document) error {
		if target == PauseTarget {
			doc.PausedAll = false
			doc.PausedJobs = map[string]struct{}{}
			return nil
		}
		if doc.PausedAll {
			noop = true
			return nil
		}
		delete(doc.PausedJobs, target)
		return nil
	})
	return noop, err
}

// IsPaused reports whether a qualified id is paused, globally or
// individually.
func (s *Store) IsPaused(qualifiedID string) (bool, error) {
	doc, err := s.Load()
	if err != nil {
		return false, err
	}
	return doc.IsPaused(qualifiedID), nil
}

// GetPauseStatus returns the decoded pause marker.
func (s *Store) GetPauseStatus() (PauseStatus, error) {
	doc, err := s.Load()
	if err != nil {
		return PauseStatus{}, err
	}
	jobs := make(map[string]struct{}, len(doc.PausedJobs))
	for id := range doc.PausedJobs {
		jobs[id] = struct{}{}
	}
	return PauseStatus{All: doc.PausedAll, Jobs: jobs}, nil
}
