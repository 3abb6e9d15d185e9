package schedule

import (
	"testing"
	"time"
)

func TestParseFields_Sets(t *testing.T) {
	t.Parallel()

	f, err := ParseFields("0 6-8 * * *")
	if err != nil {
		t.Fatalf("ParseFields() error: %v", err)
	}
	if got := f.Minute.Values; len(got) != 1 || got[0] != 0 {
		t.Errorf("minute = %v, want [0]", got)
	}
	if got := f.Hour.Values; len(got) != 3 || got[0] != 6 || got[2] != 8 {
		t.Errorf("hour = %v, want [6 7 8]", got)
	}
	if !f.Day.Wildcard || !f.Month.Wildcard || !f.Weekday.Wildcard {
		t.Error("day/month/weekday should be wildcards")
	}

	f, err = ParseFields("*/5 * * * *")
	if err != nil {
		t.Fatalf("ParseFields() error: %v", err)
	}
	if got := f.Minute.Values; len(got) != 12 || got[0] != 0 || got[1] != 5 || got[11] != 55 {
		t.Errorf("minute = %v, want 0,5,...,55", got)
	}

	f, err = ParseFields("0 9 * * 1-5")
	if err != nil {
		t.Fatalf("ParseFields() error: %v", err)
	}
	if got := f.Weekday.Values; len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Errorf("weekday = %v, want [1 2 3 4 5]", got)
	}

	// Comma lists with duplicates and the Sunday alias.
	f, err = ParseFields("0 0 * * 1,3,7")
	if err != nil {
		t.Fatalf("ParseFields() error: %v", err)
	}
	if got := f.Weekday.Values; len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 3 {
		t.Errorf("weekday = %v, want [0 1 3]", got)
	}

	// Stepped range.
	f, err = ParseFields("0 8-18/2 * * *")
	if err != nil {
		t.Fatalf("ParseFields() error: %v", err)
	}
	if got := f.Hour.Values; len(got) != 6 || got[0] != 8 || got[5] != 18 {
		t.Errorf("hour = %v, want [8 10 12 14 16 18]", got)
	}

	// L in the day field.
	f, err = ParseFields("0 0 L * *")
	if err != nil {
		t.Fatalf("ParseFields() error: %v", err)
	}
	if !f.Day.Last {
		t.Error("day.Last should be set")
	}
}

func TestParseFields_Rejects(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * 32 * *",
		"* * * 13 *",
		"* * * * 8",
		"* * * * L",  // L outside day field
		"* * 15W * *", // W unsupported
		"* * * * 1#2", // # unsupported
		"a * * * *",
		"1- * * * *",
	} {
		if _, err := ParseFields(expr); err == nil {
			t.Errorf("ParseFields(%q) succeeded, want error", expr)
		}
	}
}

func TestNextAfter_Standard(t *testing.T) {
	t.Parallel()

	// Tuesday 2025-03-04 10:30 local.
	base := time.Date(2025, 3, 4, 10, 30, 0, 0, time.Local)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2025, 3, 4, 10, 31, 0, 0, time.Local)},
		{"0 * * * *", time.Date(2025, 3, 4, 11, 0, 0, 0, time.Local)},
		{"0 9 * * *", time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local)},
		{"0 9 * * 1-5", time.Date(2025, 3, 5, 9, 0, 0, 0, time.Local)},
		{"0 9 * * 6", time.Date(2025, 3, 8, 9, 0, 0, 0, time.Local)},
		{"0 0 1 * *", time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)},
		{"*/15 * * * *", time.Date(2025, 3, 4, 10, 45, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := NextAfter(tt.expr, base)
		if err != nil {
			t.Errorf("NextAfter(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("NextAfter(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestNextAfter_Never(t *testing.T) {
	t.Parallel()

	got, err := NextAfter("0 0 30 2 *", time.Date(2025, 3, 4, 10, 30, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("NextAfter() error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("Feb 30 fired at %v, want never", got)
	}
}

func TestNextAfter_Reboot(t *testing.T) {
	t.Parallel()

	got, err := NextAfter(Reboot, time.Now())
	if err != nil {
		t.Fatalf("NextAfter() error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("reboot marker fired at %v, want never", got)
	}
}

func TestNextAfter_LastDayOfMonth(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 2, 10, 12, 0, 0, 0, time.Local)
	got, err := NextAfter("0 0 L * *", base)
	if err != nil {
		t.Fatalf("NextAfter() error: %v", err)
	}
	want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("NextAfter(L, feb) = %v, want %v", got, want)
	}

	// From the last day itself, after the fire time, roll to next month.
	base = time.Date(2025, 2, 28, 1, 0, 0, 0, time.Local)
	got, err = NextAfter("0 0 L * *", base)
	if err != nil {
		t.Fatal(err)
	}
	want = time.Date(2025, 3, 31, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("NextAfter(L, post-fire) = %v, want %v", got, want)
	}

	// Leap year February.
	base = time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local)
	got, err = NextAfter("30 6 L * *", base)
	if err != nil {
		t.Fatal(err)
	}
	want = time.Date(2024, 2, 29, 6, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("NextAfter(L, leap feb) = %v, want %v", got, want)
	}
}

func TestSpec_Validate(t *testing.T) {
	t.Parallel()

	valid := []Spec{
		CronSpec("*/5 * * * *"),
		CronSpec("0 0 L * *"),
		CronSpec(Reboot),
		IntervalSpec(time.Minute),
		IntervalSpec(10 * time.Second),
	}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Errorf("Validate(%+v) error: %v", s, err)
		}
	}

	invalid := []Spec{
		{},
		{Cron: "*/5 * * * *", Interval: time.Minute},
		IntervalSpec(9 * time.Second),
		CronSpec("not a cron"),
		CronSpec("* * * * * *"),
	}
	for _, s := range invalid {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%+v) succeeded, want error", s)
		}
	}
}

func TestEffectiveIntervalAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 4, 10, 30, 0, 0, time.Local)

	tests := []struct {
		spec Spec
		want time.Duration
	}{
		{IntervalSpec(90 * time.Second), 90 * time.Second},
		{CronSpec("*/5 * * * *"), 5 * time.Minute},
		{CronSpec("0 * * * *"), time.Hour},
		{CronSpec("0 9 * * *"), 24 * time.Hour},
		{CronSpec("0 0 30 2 *"), 24 * time.Hour}, // never fires → fallback
		{CronSpec(Reboot), 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := EffectiveIntervalAt(tt.spec, now); got != tt.want {
			t.Errorf("EffectiveIntervalAt(%+v) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestShouldRun(t *testing.T) {
	t.Parallel()

	now := time.Now()
	spec := IntervalSpec(time.Minute)

	if !ShouldRun(spec, nil, now) {
		t.Error("never-run job should be due")
	}

	recent := now.Add(-30 * time.Second)
	if ShouldRun(spec, &recent, now) {
		t.Error("job run 30s ago with 1m interval should not be due")
	}

	exact := now.Add(-time.Minute)
	if !ShouldRun(spec, &exact, now) {
		t.Error("gap equal to the interval should be due")
	}

	overdue := now.Add(-2 * time.Minute)
	if !ShouldRun(spec, &overdue, now) {
		t.Error("overdue job should be due")
	}
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 4, 10, 30, 0, 0, time.Local)

	// Cron: next fire after now regardless of lastRun.
	last := now.Add(-time.Hour)
	got, err := NextRun(CronSpec("0 * * * *"), &last, now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2025, 3, 4, 11, 0, 0, 0, time.Local); !got.Equal(want) {
		t.Errorf("NextRun(cron) = %v, want %v", got, want)
	}

	// Interval, never run: due now.
	got, err = NextRun(IntervalSpec(time.Minute), nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(now) {
		t.Errorf("NextRun(interval, never) = %v, want %v", got, now)
	}

	// Interval with lastRun: lastRun + interval, even if in the past.
	got, err = NextRun(IntervalSpec(time.Minute), &last, now)
	if err != nil {
		t.Fatal(err)
	}
	if want := last.Add(time.Minute); !got.Equal(want) {
		t.Errorf("NextRun(interval, last) = %v, want %v", got, want)
	}
}
