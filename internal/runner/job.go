// Package runner orchestrates a single short-lived invocation: gate the
// job, take its lock, execute the user operation with stdio captured to
// the job log, persist the result, and report the outcome. Every
// trigger fired by launchd and every wake-check lands here.
package runner

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/channel4/cron-burgundy/internal/jobid"
	"github.com/channel4/cron-burgundy/internal/lockfile"
	"github.com/channel4/cron-burgundy/internal/notify"
	"github.com/channel4/cron-burgundy/internal/registry"
	"github.com/channel4/cron-burgundy/internal/schedule"
)

// Context is handed to the user operation.
type Context struct {
	// Logger writes structured lines into the per-job log.
	Logger *slog.Logger

	// LastRun is the previous successful run, nil on the first run.
	LastRun *time.Time

	// Utils exposes the side-effect helpers available to job code.
	Utils Utils
}

// Utils bundles the helper surface job code may use.
type Utils struct {
	Notify notify.Notifier
}

// RunFunc is the user operation: it completes, fails, or runs forever.
type RunFunc func(Context) error

// Job is a runnable unit resolved from a source definition or
// constructed directly by library users.
type Job struct {
	ID          string
	Namespace   string
	Description string
	Spec        schedule.Spec
	Enabled     bool

	// StaleLock overrides the stale-lock threshold; zero derives it
	// from the schedule.
	StaleLock time.Duration

	Run RunFunc
}

// QualifiedID returns the id used by the state store, lock manager, and
// launchd adapter.
func (j Job) QualifiedID() string {
	return jobid.Qualify(j.ID, j.Namespace)
}

// staleThreshold resolves the lock-reclamation threshold: the explicit
// override, 3× the interval for interval jobs, or the cron default.
func (j Job) staleThreshold() time.Duration {
	if j.StaleLock > 0 {
		return j.StaleLock
	}
	if j.Spec.Interval > 0 {
		return lockfile.ForInterval(j.Spec.Interval)
	}
	return lockfile.DefaultStale
}

// CommandRun builds the RunFunc for a shell command declared in a job
// source file. The command inherits the redirected stdio, so its output
// lands in the job log verbatim.
func CommandRun(command, dir string) RunFunc {
	return func(Context) error {
		cmd := exec.Command("/bin/sh", "-c", command)
		cmd.Dir = dir
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("runner: command failed: %w", err)
		}
		return nil
	}
}

// FromDefinition converts a validated source definition into a Job.
func FromDefinition(def registry.Definition, src registry.Source) (Job, error) {
	spec, err := def.Spec()
	if err != nil {
		return Job{}, fmt.Errorf("runner: job %q: %w", def.ID, err)
	}
	dir := ""
	if src.File != "" {
		dir = filepath.Dir(src.File)
	}
	return Job{
		ID:          def.ID,
		Namespace:   src.Namespace,
		Description: def.Description,
		Spec:        spec,
		Enabled:     def.IsEnabled(),
		StaleLock:   def.StaleLock(),
		Run:         CommandRun(def.Command, dir),
	}, nil
}
