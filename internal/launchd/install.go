package launchd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/channel4/cron-burgundy/internal/jobid"
)

// InstallOutcome reports what Install actually did.
type InstallOutcome string

const (
	Installed InstallOutcome = "installed"
	Unchanged InstallOutcome = "unchanged"
)

// StateCleaner is the slice of the state store the adapter needs when
// uninstalling: dropping a job's run history marker and pause entry.
type StateCleaner interface {
	ClearJob(qualifiedID string) error
}

// LockCleaner drops a job's lock file on uninstall.
type LockCleaner interface {
	Release(qualifiedID string) error
}

// Adapter installs and removes launchd configurations under Dir.
type Adapter struct {
	// Dir is the LaunchAgents directory.
	Dir string

	// Executable is the cron-burgundy binary each trigger invokes.
	Executable string

	// StdoutPath and StderrPath are the runner log sinks wired into
	// every generated configuration.
	StdoutPath string
	StderrPath string

	State  StateCleaner
	Locks  LockCleaner
	Logger *slog.Logger

	// launchctl runs the launchctl subcommand; tests stub it.
	launchctl func(args ...string) error
}

// New creates an Adapter. A nil logger falls back to slog.Default().
func New(dir, executable, stdoutPath, stderrPath string, st StateCleaner, locks LockCleaner, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		Dir:        dir,
		Executable: executable,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		State:      st,
		Locks:      locks,
		Logger:     logger,
		launchctl:  runLaunchctl,
	}
}

func runLaunchctl(args ...string) error {
	return exec.Command("launchctl", args...).Run()
}

// loadConfig and unloadConfig tolerate launchctl failures: the
// configuration may or may not have been registered previously, and a
// failed load is recoverable at next login.
func (a *Adapter) loadConfig(path string) {
	if err := a.launchctl("load", path); err != nil {
		a.Logger.Debug("launchd: load failed", "path", path, "error", err)
	}
}

func (a *Adapter) unloadConfig(path string) {
	if err := a.launchctl("unload", path); err != nil {
		a.Logger.Debug("launchd: unload failed", "path", path, "error", err)
	}
}

// Install writes and loads one job configuration. If the on-disk bytes
// already match, nothing is touched and Unchanged is reported.
func (a *Adapter) Install(cfg JobConfig) (InstallOutcome, error) {
	data, err := GenerateJobPlist(cfg)
	if err != nil {
		return "", err
	}
	return a.installBytes(PlistFilename(JobLabel(cfg.Namespace, cfg.ID)), data)
}

func (a *Adapter) installBytes(filename string, data []byte) (InstallOutcome, error) {
	path := filepath.Join(a.Dir, filename)

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return Unchanged, nil
	}

	// Unload any prior version before replacing it.
	if _, err := os.Stat(path); err == nil {
		a.unloadConfig(path)
	}

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("launchd: creating %s: %w", a.Dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("launchd: writing %s: %w", path, err)
	}
	a.loadConfig(path)
	return Installed, nil
}

// Uninstall unloads and removes one job configuration, then clears the
// job's lock file and state entries so a reinstalled job starts fresh.
func (a *Adapter) Uninstall(namespace, id string) error {
	label := JobLabel(namespace, id)
	path := filepath.Join(a.Dir, PlistFilename(label))

	a.unloadConfig(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("launchd: removing %s: %w", path, err)
	}

	qid := jobid.Qualify(id, namespace)
	if a.Locks != nil {
		if err := a.Locks.Release(qid); err != nil {
			a.Logger.Warn("launchd: clearing lock failed", "job", qid, "error", err)
		}
	}
	if a.State != nil {
		if err := a.State.ClearJob(qid); err != nil {
			a.Logger.Warn("launchd: clearing state failed", "job", qid, "error", err)
		}
	}
	a.Logger.Info("launchd: uninstalled", "label", label)
	return nil
}

// ListInstalled returns every plist filename in the configs directory
// owned by this tool, sorted, including the wake check.
func (a *Adapter) ListInstalled() ([]string, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("launchd: reading %s: %w", a.Dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && IsOwnedPlist(e.Name()) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// EnsureWakeCheck installs the run-at-load wake-check configuration.
func (a *Adapter) EnsureWakeCheck() (InstallOutcome, error) {
	data := GenerateWakeCheckPlist(a.Executable, a.StdoutPath, a.StderrPath)
	return a.installBytes(PlistFilename(WakeCheckLabel), data)
}

// RemoveWakeCheck unloads and removes the wake-check configuration.
// Only the no-namespace teardown path calls this; per-namespace
// uninstalls leave the wake check in place.
func (a *Adapter) RemoveWakeCheck() error {
	path := filepath.Join(a.Dir, PlistFilename(WakeCheckLabel))
	a.unloadConfig(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("launchd: removing wake check: %w", err)
	}
	return nil
}
