package registry

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/channel4/cron-burgundy/internal/jobid"
	"github.com/channel4/cron-burgundy/internal/schedule"
)

// Definition is one job as declared in a source file.
type Definition struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description,omitempty"`

	// Exactly one of Schedule (human phrase or five-field cron) or
	// Interval (milliseconds, minimum 10000) must be set.
	Schedule string `yaml:"schedule,omitempty"`
	Interval int64  `yaml:"interval,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Command is the user operation, run through the shell in the
	// source file's directory.
	Command string `yaml:"command"`

	// StaleLockMS overrides the stale-lock reclamation threshold.
	StaleLockMS int64 `yaml:"stale_lock_ms,omitempty"`
}

// IsEnabled resolves the Enabled default.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Spec normalizes the definition's schedule into an evaluable form.
func (d Definition) Spec() (schedule.Spec, error) {
	if d.Interval != 0 {
		return schedule.IntervalSpec(time.Duration(d.Interval) * time.Millisecond), nil
	}
	expr, err := schedule.Normalize(d.Schedule)
	if err != nil {
		return schedule.Spec{}, err
	}
	return schedule.CronSpec(expr), nil
}

// StaleLock returns the explicit per-job stale-lock override, or zero
// when the caller should derive the default from the schedule.
func (d Definition) StaleLock() time.Duration {
	return time.Duration(d.StaleLockMS) * time.Millisecond
}

// Validate checks a single definition.
func (d Definition) Validate() error {
	if err := jobid.Validate(d.ID); err != nil {
		return err
	}
	if d.Schedule != "" && d.Interval != 0 {
		return fmt.Errorf("job %q declares both schedule and interval", d.ID)
	}
	if d.Schedule == "" && d.Interval == 0 {
		return fmt.Errorf("job %q declares neither schedule nor interval", d.ID)
	}
	if d.Interval != 0 && time.Duration(d.Interval)*time.Millisecond < schedule.MinInterval {
		return fmt.Errorf("job %q interval %dms below minimum %v", d.ID, d.Interval, schedule.MinInterval)
	}
	if d.Command == "" {
		return fmt.Errorf("job %q has no command", d.ID)
	}
	if spec, err := d.Spec(); err != nil {
		return fmt.Errorf("job %q: %w", d.ID, err)
	} else if err := spec.Validate(); err != nil {
		return fmt.Errorf("job %q: %w", d.ID, err)
	}
	return nil
}

// sourceDoc is the on-disk shape of a job source file.
type sourceDoc struct {
	Jobs []Definition `yaml:"jobs"`
}

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// LoadFile reads one job source file: YAML with ${VAR} environment
// expansion, an ordered jobs list, and per-definition validation.
// Duplicate ids within one file are an error.
func LoadFile(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("registry: expanding variables in %s: %w", path, err)
	}

	var doc sourceDoc
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", path, err)
	}
	if len(doc.Jobs) == 0 {
		return nil, fmt.Errorf("registry: %s declares no jobs", path)
	}

	seen := map[string]bool{}
	for _, d := range doc.Jobs {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %s: %w", path, err)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("registry: %s: duplicate job id %q", path, d.ID)
		}
		seen[d.ID] = true
	}
	return doc.Jobs, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML
// bytes, reporting every unresolved variable at once.
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
