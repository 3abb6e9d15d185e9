package runner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/channel4/cron-burgundy/internal/history"
	"github.com/channel4/cron-burgundy/internal/joblog"
	"github.com/channel4/cron-burgundy/internal/lockfile"
	"github.com/channel4/cron-burgundy/internal/notify"
	"github.com/channel4/cron-burgundy/internal/paths"
	"github.com/channel4/cron-burgundy/internal/schedule"
	"github.com/channel4/cron-burgundy/internal/state"
)

// Config wires the runner's collaborators. Logger defaults to
// slog.Default(), Notifier to a no-op; History may stay nil to disable
// run recording.
type Config struct {
	Layout   *paths.Layout
	State    *state.Store
	Locks    *lockfile.Manager
	Notifier notify.Notifier
	History  *history.Store
	Logger   *slog.Logger
}

// Runner executes jobs for one process invocation.
type Runner struct {
	layout   *paths.Layout
	state    *state.Store
	locks    *lockfile.Manager
	notifier notify.Notifier
	history  *history.Store
	logger   *slog.Logger

	runnerLog *joblog.Writer
}

// New creates a Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop()
	}
	return &Runner{
		layout:    cfg.Layout,
		state:     cfg.State,
		locks:     cfg.Locks,
		notifier:  notifier,
		history:   cfg.History,
		logger:    logger,
		runnerLog: joblog.NewWriter(cfg.Layout.RunnerLogPath()),
	}
}

// ReleaseLocks drops every lock this process still holds. Wired to the
// signal and process-exit paths by the CLI.
func (r *Runner) ReleaseLocks() { r.locks.ReleaseAll() }

// event writes one line to the global runner log and mirrors it to the
// structured logger. Runner-log failures never mask job outcomes.
func (r *Runner) event(qid, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err := r.runnerLog.Line("%s: %s", qid, msg); err != nil {
		r.logger.Warn("runner: writing runner log failed", "error", err)
	}
	r.logger.Info("runner: "+msg, "job", qid)
}

// RunJobNow executes one job immediately. scheduled distinguishes
// launchd-triggered runs from manual ones: only scheduled runs respect
// the pause gate and record nextRun for interval jobs. A refused lock
// and a paused job are normal outcomes, not errors; a failing user
// operation is re-raised after cleanup.
func (r *Runner) RunJobNow(job Job, scheduled bool) (err error) {
	qid := job.QualifiedID()

	if scheduled {
		paused, err := r.state.IsPaused(qid)
		if err != nil {
			return err
		}
		if paused {
			r.event(qid, "skipped - paused")
			return nil
		}
	}

	acquired, err := r.locks.Acquire(qid, job.staleThreshold())
	if err != nil {
		return err
	}
	if !acquired {
		r.event(qid, "skipped - locked")
		return nil
	}
	defer func() {
		if relErr := r.locks.Release(qid); relErr != nil && err == nil {
			err = relErr
		}
	}()

	return r.execute(job, qid, scheduled)
}

// execute runs the user operation with the lock already held and
// persists the outcome. The pause gate is the caller's business.
func (r *Runner) execute(job Job, qid string, scheduled bool) error {
	var lastRun *time.Time
	if t, ok, err := r.state.GetLastRun(qid); err != nil {
		return err
	} else if ok {
		lastRun = &t
	}

	jobLog := joblog.NewWriter(r.layout.JobLogPath(qid))
	logFile, err := jobLog.OpenAppend()
	if err != nil {
		return err
	}

	_ = jobLog.Line("starting %s", qid)
	r.event(qid, "started")

	start := time.Now()
	restore := redirectStdio(logFile)
	runErr := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("runner: job panicked: %v", p)
			}
		}()
		return job.Run(Context{
			Logger:  slog.New(slog.NewTextHandler(jobLog, nil)),
			LastRun: lastRun,
			Utils:   Utils{Notify: r.notifier},
		})
	}()
	restore()
	_ = logFile.Close()
	duration := time.Since(start)

	if runErr != nil {
		_ = jobLog.Line("failed: %v", runErr)
		r.event(qid, "failed: %v", runErr)
		if nerr := r.notifier.Notify("cron-burgundy", fmt.Sprintf("%s failed: %v", qid, runErr)); nerr != nil {
			r.logger.Warn("runner: notification failed", "job", qid, "error", nerr)
		}
		r.record(qid, history.OutcomeFailed, scheduled, start, duration, runErr.Error())
		// State is untouched so the job stays overdue and retries on
		// the next fire or wake check.
		return fmt.Errorf("runner: job %s failed: %w", qid, runErr)
	}

	interval := time.Duration(0)
	if scheduled && job.Spec.Interval > 0 {
		interval = job.Spec.Interval
	}
	if err := r.state.MarkRun(qid, interval); err != nil {
		return err
	}
	_ = jobLog.Line("completed in %dms", duration.Milliseconds())
	r.event(qid, "completed in %dms", duration.Milliseconds())
	r.record(qid, history.OutcomeRan, scheduled, start, duration, "")
	return nil
}

// record appends a run to the history store. Best effort: failures are
// logged and dropped.
func (r *Runner) record(qid string, outcome history.Outcome, scheduled bool, start time.Time, d time.Duration, errText string) {
	if r.history == nil {
		return
	}
	err := r.history.Append(history.Run{
		QualifiedID: qid,
		Outcome:     outcome,
		Scheduled:   scheduled,
		Started:     start,
		Duration:    d,
		Error:       errText,
	})
	if err != nil {
		r.logger.Warn("runner: recording history failed", "job", qid, "error", err)
	}
}

// Results partitions a batch of jobs by what happened to each. The five
// lists are disjoint and together cover every input job.
type Results struct {
	Ran      []string
	Skipped  []string
	Disabled []string
	Paused   []string
	Failed   []string
}

// RunAllDue runs every due job in the batch, classifying each one.
// Failures are contained: a failing job lands in Failed and the batch
// continues.
func (r *Runner) RunAllDue(jobs []Job, scheduled bool) (Results, error) {
	var res Results
	now := time.Now()

	for _, job := range jobs {
		qid := job.QualifiedID()

		if !job.Enabled {
			res.Disabled = append(res.Disabled, qid)
			continue
		}

		paused, err := r.state.IsPaused(qid)
		if err != nil {
			return res, err
		}
		if paused {
			res.Paused = append(res.Paused, qid)
			continue
		}

		var lastRun *time.Time
		if t, ok, err := r.state.GetLastRun(qid); err != nil {
			return res, err
		} else if ok {
			lastRun = &t
		}
		if !schedule.ShouldRun(job.Spec, lastRun, now) {
			res.Skipped = append(res.Skipped, qid)
			continue
		}

		acquired, err := r.locks.Acquire(qid, job.staleThreshold())
		if err != nil {
			return res, err
		}
		if !acquired {
			r.event(qid, "skipped - locked")
			res.Skipped = append(res.Skipped, qid)
			continue
		}
		execErr := r.execute(job, qid, scheduled)
		if relErr := r.locks.Release(qid); relErr != nil && execErr == nil {
			execErr = relErr
		}
		if execErr != nil {
			res.Failed = append(res.Failed, qid)
			continue
		}
		res.Ran = append(res.Ran, qid)
	}
	return res, nil
}

// CheckMissed is the wake-check pass: it catches up enabled, unpaused
// jobs whose last successful run is older than their interval. Runs
// recorded here are catch-up runs, so interval jobs do not get a
// nextRun entry.
func (r *Runner) CheckMissed(jobs []Job) (Results, error) {
	var res Results
	now := time.Now()

	for _, job := range jobs {
		qid := job.QualifiedID()

		if !job.Enabled {
			res.Disabled = append(res.Disabled, qid)
			continue
		}
		paused, err := r.state.IsPaused(qid)
		if err != nil {
			return res, err
		}
		if paused {
			res.Paused = append(res.Paused, qid)
			continue
		}

		acquired, err := r.locks.Acquire(qid, job.staleThreshold())
		if err != nil {
			return res, err
		}
		if !acquired {
			res.Skipped = append(res.Skipped, qid)
			continue
		}

		var lastRun *time.Time
		if t, ok, err := r.state.GetLastRun(qid); err == nil && ok {
			lastRun = &t
		} else if err != nil {
			_ = r.locks.Release(qid)
			return res, err
		}

		if !schedule.ShouldRun(job.Spec, lastRun, now) {
			_ = r.locks.Release(qid)
			res.Skipped = append(res.Skipped, qid)
			continue
		}

		r.event(qid, "missed run detected, catching up")
		execErr := r.execute(job, qid, false)
		if relErr := r.locks.Release(qid); relErr != nil && execErr == nil {
			execErr = relErr
		}
		if execErr != nil {
			res.Failed = append(res.Failed, qid)
			continue
		}
		res.Ran = append(res.Ran, qid)
	}
	return res, nil
}
