package launchd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/channel4/cron-burgundy/internal/jobid"
	"github.com/channel4/cron-burgundy/internal/schedule"
)

// JobConfig is everything plist generation needs for one job.
type JobConfig struct {
	ID        string
	Namespace string
	Spec      schedule.Spec

	// Executable is the absolute path of the cron-burgundy binary the
	// trigger invokes.
	Executable string

	// WorkingDir is the directory of the job's source file.
	WorkingDir string

	// StdoutPath and StderrPath are the global runner log sinks.
	StdoutPath string
	StderrPath string
}

// CalendarField is one key of a StartCalendarInterval record.
type CalendarField struct {
	Key   string
	Value int
}

// CalendarRecord is one concrete fire pattern: the Cartesian-product
// expansion of the cron expression's non-wildcard fields.
type CalendarRecord []CalendarField

// GenerateJobPlist renders the deterministic plist bytes for a job.
// Identical inputs always produce identical bytes; the install path
// relies on that to detect no-ops.
func GenerateJobPlist(cfg JobConfig) ([]byte, error) {
	if err := jobid.Validate(cfg.ID); err != nil {
		return nil, fmt.Errorf("launchd: %w", err)
	}
	if err := jobid.ValidateNamespace(cfg.Namespace); err != nil {
		return nil, fmt.Errorf("launchd: %w", err)
	}
	if cfg.Executable == "" {
		return nil, fmt.Errorf("launchd: executable path required")
	}

	qid := jobid.Qualify(cfg.ID, cfg.Namespace)
	label := JobLabel(cfg.Namespace, cfg.ID)

	var b plistBuilder
	b.open(label)
	b.programArguments(cfg.Executable, "run", "--scheduled", qid)
	if cfg.WorkingDir != "" {
		b.stringKey("WorkingDirectory", cfg.WorkingDir)
	}
	b.stringKey("StandardOutPath", cfg.StdoutPath)
	b.stringKey("StandardErrorPath", cfg.StderrPath)
	b.pathEnvironment(filepath.Dir(cfg.Executable))

	switch {
	case cfg.Spec.Interval > 0:
		if cfg.Spec.Interval < schedule.MinInterval {
			return nil, fmt.Errorf("launchd: interval must be at least %dms", schedule.MinInterval.Milliseconds())
		}
		b.integerKey("StartInterval", int(cfg.Spec.Interval/time.Second))
	case cfg.Spec.Cron == schedule.Reboot:
		b.boolKey("RunAtLoad", true)
	default:
		records, err := ExpandCalendar(cfg.Spec.Cron)
		if err != nil {
			return nil, err
		}
		b.calendarIntervals(records)
	}

	b.close()
	return b.bytes(), nil
}

// GenerateWakeCheckPlist renders the run-at-load configuration that
// invokes the wake check on login and wake.
func GenerateWakeCheckPlist(executable, stdoutPath, stderrPath string) []byte {
	var b plistBuilder
	b.open(WakeCheckLabel)
	b.programArguments(executable, "check-missed")
	b.stringKey("StandardOutPath", stdoutPath)
	b.stringKey("StandardErrorPath", stderrPath)
	b.pathEnvironment(filepath.Dir(executable))
	b.boolKey("RunAtLoad", true)
	b.close()
	return b.bytes()
}

// ExpandCalendar expands a five-field cron expression into launchd
// calendar records: wildcards are omitted, everything else becomes the
// Cartesian product of the listed values. The records fire exactly when
// the evaluator says the expression fires.
//
// Vixie cron resolves a restricted Day together with a restricted
// Weekday as a union — the expression fires when either field matches.
// A launchd record matches all of its keys, so that shape is encoded as
// two independent products: one anchored on Day with Weekday omitted,
// one anchored on Weekday with Day omitted.
//
// Day-field "L" has no launchd rendering; those jobs are refused here
// and stay wake-check driven.
func ExpandCalendar(expr string) ([]CalendarRecord, error) {
	f, err := schedule.ParseFields(expr)
	if err != nil {
		return nil, err
	}
	if f.Day.Last {
		return nil, fmt.Errorf("launchd: %q: last-day-of-month cannot be expressed as a calendar interval", expr)
	}

	if !f.Day.Wildcard && !f.Weekday.Wildcard {
		records := expandProduct(f, true, false)
		return append(records, expandProduct(f, false, true)...), nil
	}
	return expandProduct(f, true, true), nil
}

// expandProduct builds the Cartesian product of the expression's
// non-wildcard fields, optionally leaving out the Day or Weekday
// dimension for the union encoding above.
func expandProduct(f schedule.Fields, includeDay, includeWeekday bool) []CalendarRecord {
	day := f.Day.ValuesOrNil()
	if !includeDay {
		day = nil
	}
	weekday := f.Weekday.ValuesOrNil()
	if !includeWeekday {
		weekday = nil
	}

	dims := []struct {
		key    string
		values []int
	}{
		{"Minute", f.Minute.ValuesOrNil()},
		{"Hour", f.Hour.ValuesOrNil()},
		{"Day", day},
		{"Month", f.Month.ValuesOrNil()},
		{"Weekday", weekday},
	}

	records := []CalendarRecord{{}}
	for _, dim := range dims {
		if dim.values == nil {
			continue
		}
		next := make([]CalendarRecord, 0, len(records)*len(dim.values))
		for _, rec := range records {
			for _, v := range dim.values {
				grown := make(CalendarRecord, len(rec), len(rec)+1)
				copy(grown, rec)
				grown = append(grown, CalendarField{Key: dim.key, Value: v})
				next = append(next, grown)
			}
		}
		records = next
	}
	return records
}

// plistBuilder assembles plist XML with fixed indentation. launchd is
// indifferent to formatting, but the byte-equality install contract is
// not.
type plistBuilder struct {
	sb strings.Builder
}

func (b *plistBuilder) open(label string) {
	b.sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.sb.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.sb.WriteString("<plist version=\"1.0\">\n<dict>\n")
	b.stringKey("Label", label)
}

func (b *plistBuilder) close() {
	b.sb.WriteString("</dict>\n</plist>\n")
}

func (b *plistBuilder) bytes() []byte {
	return []byte(b.sb.String())
}

func (b *plistBuilder) programArguments(args ...string) {
	b.sb.WriteString("\t<key>ProgramArguments</key>\n\t<array>\n")
	for _, a := range args {
		fmt.Fprintf(&b.sb, "\t\t<string>%s</string>\n", escapeXML(a))
	}
	b.sb.WriteString("\t</array>\n")
}

func (b *plistBuilder) pathEnvironment(executableDir string) {
	path := executableDir + ":/usr/local/bin:/usr/bin:/bin"
	b.sb.WriteString("\t<key>EnvironmentVariables</key>\n\t<dict>\n")
	fmt.Fprintf(&b.sb, "\t\t<key>PATH</key>\n\t\t<string>%s</string>\n", escapeXML(path))
	b.sb.WriteString("\t</dict>\n")
}

func (b *plistBuilder) stringKey(key, value string) {
	fmt.Fprintf(&b.sb, "\t<key>%s</key>\n\t<string>%s</string>\n", key, escapeXML(value))
}

func (b *plistBuilder) integerKey(key string, value int) {
	fmt.Fprintf(&b.sb, "\t<key>%s</key>\n\t<integer>%d</integer>\n", key, value)
}

func (b *plistBuilder) boolKey(key string, value bool) {
	v := "false"
	if value {
		v = "true"
	}
	fmt.Fprintf(&b.sb, "\t<key>%s</key>\n\t<%s/>\n", key, v)
}

func (b *plistBuilder) calendarIntervals(records []CalendarRecord) {
	b.sb.WriteString("\t<key>StartCalendarInterval</key>\n")
	if len(records) == 1 {
		b.calendarDict(records[0], "\t")
		return
	}
	b.sb.WriteString("\t<array>\n")
	for _, rec := range records {
		b.calendarDict(rec, "\t\t")
	}
	b.sb.WriteString("\t</array>\n")
}

func (b *plistBuilder) calendarDict(rec CalendarRecord, indent string) {
	b.sb.WriteString(indent + "<dict>\n")
	for _, f := range rec {
		fmt.Fprintf(&b.sb, "%s\t<key>%s</key>\n%s\t<integer>%d</integer>\n", indent, f.Key, indent, f.Value)
	}
	b.sb.WriteString(indent + "</dict>\n")
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
