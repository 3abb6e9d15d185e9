package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the smallest accepted interval for interval jobs.
const MinInterval = 10 * time.Second

// fallbackInterval is reported for expressions whose gap cannot be
// measured (never-firing expressions and run-at-load markers).
const fallbackInterval = 24 * time.Hour

// parser mirrors the standard five-field grammar. Descriptors and the
// seconds field are deliberately excluded; normalization has already
// reduced every accepted phrase to five fields or the Reboot marker.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Spec is a job's normalized schedule: exactly one of Cron (including
// the Reboot marker) or Interval is set.
type Spec struct {
	Cron     string
	Interval time.Duration
}

// CronSpec wraps a normalized cron expression.
func CronSpec(expr string) Spec { return Spec{Cron: expr} }

// IntervalSpec wraps a fixed interval.
func IntervalSpec(d time.Duration) Spec { return Spec{Interval: d} }

// Validate checks that the spec is one of the two accepted shapes and
// that a cron expression actually parses.
func (s Spec) Validate() error {
	switch {
	case s.Interval != 0 && s.Cron != "":
		return fmt.Errorf("schedule: both cron and interval set")
	case s.Interval != 0:
		if s.Interval < MinInterval {
			return fmt.Errorf("schedule: interval %v below minimum %v", s.Interval, MinInterval)
		}
		return nil
	case s.Cron == Reboot:
		return nil
	case s.Cron != "":
		_, err := ParseFields(s.Cron)
		if err != nil {
			return err
		}
		if !hasLastDay(s.Cron) {
			if _, err := parser.Parse(s.Cron); err != nil {
				return fmt.Errorf("schedule: invalid cron expression %q: %w", s.Cron, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("schedule: neither cron nor interval set")
	}
}

// NextAfter computes the first fire time strictly after t in the local
// time zone. The zero time means the expression never fires (the
// "never" phrase, impossible dates, and the Reboot marker).
func NextAfter(expr string, t time.Time) (time.Time, error) {
	if expr == Reboot {
		return time.Time{}, nil
	}
	if hasLastDay(expr) {
		return nextLastDay(expr, t)
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	// robfig returns the zero time when nothing matches within its
	// search horizon, which is exactly the "never fires" contract.
	return sched.Next(t), nil
}

// hasLastDay reports whether the day field carries the L marker, which
// robfig/cron cannot evaluate.
func hasLastDay(expr string) bool {
	f, err := ParseFields(expr)
	return err == nil && f.Day.Last
}

// nextLastDay walks months to evaluate day-field "L" expressions: the
// candidate day is the final day of each month, combined with the
// expression's hour and minute sets.
func nextLastDay(expr string, after time.Time) (time.Time, error) {
	f, err := ParseFields(expr)
	if err != nil {
		return time.Time{}, err
	}

	minutes := f.Minute.ValuesOrNil()
	if minutes == nil {
		minutes = rangeInts(0, 59)
	}
	hours := f.Hour.ValuesOrNil()
	if hours == nil {
		hours = rangeInts(0, 23)
	}

	loc := after.Location()
	// Five-year horizon, matching the robfig search limit.
	for m := 0; m < 12*5; m++ {
		month := time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, m, 0)
		if !f.Month.Contains(int(month.Month())) {
			continue
		}
		lastDay := month.AddDate(0, 1, -1)
		for _, h := range hours {
			for _, min := range minutes {
				candidate := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), h, min, 0, 0, loc)
				if candidate.After(after) {
					return candidate, nil
				}
			}
		}
	}
	return time.Time{}, nil
}

func rangeInts(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

// EffectiveInterval reports the spec's period. Interval jobs answer
// directly; cron jobs answer with the gap between their next two fires.
// Expressions with no measurable gap fall back to 24 hours.
func EffectiveInterval(s Spec) time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return EffectiveIntervalAt(s, time.Now())
}

// EffectiveIntervalAt is EffectiveInterval anchored at a caller-chosen
// instant, for deterministic tests.
func EffectiveIntervalAt(s Spec, now time.Time) time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	t1, err := NextAfter(s.Cron, now)
	if err != nil || t1.IsZero() {
		return fallbackInterval
	}
	t2, err := NextAfter(s.Cron, t1)
	if err != nil || t2.IsZero() || !t2.After(t1) {
		return fallbackInterval
	}
	return t2.Sub(t1)
}

// ShouldRun reports whether a job is due: never-run jobs always are,
// otherwise the wall-clock gap since the last run must cover the
// effective interval. Wall-clock differencing (rather than cron
// walking) is what turns post-sleep skew into "overdue".
func ShouldRun(s Spec, lastRun *time.Time, now time.Time) bool {
	if lastRun == nil {
		return true
	}
	return now.Sub(*lastRun) >= EffectiveIntervalAt(s, now)
}

// NextRun predicts the next fire: cron jobs walk the expression from
// now; interval jobs anchor to the last run, or are due immediately if
// they have never run.
func NextRun(s Spec, lastRun *time.Time, now time.Time) (time.Time, error) {
	if s.Cron != "" {
		return NextAfter(s.Cron, now)
	}
	if lastRun == nil {
		return now, nil
	}
	return lastRun.Add(s.Interval), nil
}
