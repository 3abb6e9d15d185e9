package launchd

import (
	"github.com/channel4/cron-burgundy/internal/registry"
)

// SyncSummary reports what one Sync pass did.
type SyncSummary struct {
	Installed []string
	Unchanged []string
	Disabled  []string
	Orphaned  []string
	Errors    map[string]error
}

// Sync reconciles one source's jobs against the installed
// configurations for its namespace: enabled jobs are installed or
// confirmed, disabled jobs are uninstalled, and leftover plists in the
// same namespace whose id is no longer declared are uninstalled as
// orphans. Jobs whose schedule cannot be rendered (launchd has no
// last-day-of-month) are reported per job and stay wake-check driven.
func (a *Adapter) Sync(defs []registry.Definition, namespace, workingDir string) (SyncSummary, error) {
	summary := SyncSummary{Errors: map[string]error{}}
	declared := map[string]bool{}

	for _, def := range defs {
		declared[def.ID] = true

		if !def.IsEnabled() {
			if err := a.Uninstall(namespace, def.ID); err != nil {
				summary.Errors[def.ID] = err
				continue
			}
			summary.Disabled = append(summary.Disabled, def.ID)
			continue
		}

		spec, err := def.Spec()
		if err != nil {
			summary.Errors[def.ID] = err
			continue
		}
		outcome, err := a.Install(JobConfig{
			ID:         def.ID,
			Namespace:  namespace,
			Spec:       spec,
			Executable: a.Executable,
			WorkingDir: workingDir,
			StdoutPath: a.StdoutPath,
			StderrPath: a.StderrPath,
		})
		if err != nil {
			summary.Errors[def.ID] = err
			continue
		}
		switch outcome {
		case Installed:
			summary.Installed = append(summary.Installed, def.ID)
		case Unchanged:
			summary.Unchanged = append(summary.Unchanged, def.ID)
		}
	}

	orphans, err := a.orphans(namespace, declared)
	if err != nil {
		return summary, err
	}
	for _, id := range orphans {
		if err := a.Uninstall(namespace, id); err != nil {
			summary.Errors[id] = err
			continue
		}
		summary.Orphaned = append(summary.Orphaned, id)
	}
	return summary, nil
}

// orphans lists installed ids in the given namespace that the incoming
// job set no longer declares.
func (a *Adapter) orphans(namespace string, declared map[string]bool) ([]string, error) {
	installed, err := a.ListInstalled()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range installed {
		ns, id, ok := ParsePlistFilename(name)
		if !ok || ns != namespace {
			continue
		}
		if !declared[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// UninstallAll removes every installed job configuration, optionally
// restricted to one namespace. The wake check is removed only on the
// unrestricted path.
func (a *Adapter) UninstallAll(namespace string) ([]string, error) {
	installed, err := a.ListInstalled()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, name := range installed {
		ns, id, ok := ParsePlistFilename(name)
		if !ok {
			continue
		}
		if namespace != "" && ns != namespace {
			continue
		}
		if err := a.Uninstall(ns, id); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	if namespace == "" {
		if err := a.RemoveWakeCheck(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
