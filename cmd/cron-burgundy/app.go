package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/channel4/cron-burgundy/internal/history"
	"github.com/channel4/cron-burgundy/internal/launchd"
	"github.com/channel4/cron-burgundy/internal/lockfile"
	"github.com/channel4/cron-burgundy/internal/notify"
	"github.com/channel4/cron-burgundy/internal/paths"
	"github.com/channel4/cron-burgundy/internal/registry"
	"github.com/channel4/cron-burgundy/internal/runner"
	"github.com/channel4/cron-burgundy/internal/state"
)

// app bundles the per-invocation wiring every subcommand shares.
type app struct {
	layout *paths.Layout
	store  *state.Store
	locks  *lockfile.Manager
	reg    *registry.Registry
	logger *slog.Logger
}

// newApp resolves the data directory, ensures its structure, and wires
// the shared collaborators. It also arms the signal path: a terminated
// invocation synchronously drops every lock it still holds.
func newApp() (*app, error) {
	layout, err := paths.Default()
	if err != nil {
		return nil, err
	}
	if err := layout.EnsureStructure(); err != nil {
		return nil, fmt.Errorf("preparing %s: %w", layout.Root, err)
	}

	a := &app{
		layout: layout,
		store:  state.New(layout.StatePath(), layout.StateLockPath()),
		locks:  lockfile.NewManager(layout.JobLockPath),
		reg:    registry.New(layout.RegistryPath()),
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		a.locks.ReleaseAll()
		os.Exit(1)
	}()

	return a, nil
}

// runner builds the Runner for this invocation. The history store is
// best-effort: if it cannot be opened, runs simply go unrecorded.
func (a *app) runner() *runner.Runner {
	var hist *history.Store
	if h, err := history.Open(a.layout.HistoryDBPath()); err == nil {
		hist = h
	} else {
		a.logger.Warn("history unavailable", "error", err)
	}
	return runner.New(runner.Config{
		Layout:   a.layout,
		State:    a.store,
		Locks:    a.locks,
		Notifier: notify.Desktop(),
		History:  hist,
		Logger:   a.logger,
	})
}

// adapter builds the launchd adapter pointed at this binary.
func (a *app) adapter() (*launchd.Adapter, error) {
	agents, err := a.layout.LaunchAgentsDir()
	if err != nil {
		return nil, err
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving executable: %w", err)
	}
	return launchd.New(
		agents, exe,
		a.layout.RunnerLogPath(), a.layout.RunnerErrorLogPath(),
		a.store, a.locks, a.logger,
	), nil
}

// loadJobs flattens every registered source into runnable jobs,
// reporting per-file load errors without aborting. An optional
// namespace filter keeps only matching sources.
func (a *app) loadJobs(namespace string) ([]runner.Job, error) {
	sources, err := a.reg.LoadAll()
	if err != nil {
		return nil, err
	}
	var jobs []runner.Job
	for _, src := range sources {
		if namespace != "" && src.Namespace != namespace {
			continue
		}
		if src.Err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", src.File, src.Err)
			continue
		}
		for _, def := range src.Jobs {
			job, err := runner.FromDefinition(def, src)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", src.File, err)
				continue
			}
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}
