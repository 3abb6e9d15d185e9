// Package schedule normalizes human schedule phrases and five-field
// cron expressions into one evaluable form, and answers the three
// questions the runner and the launchd adapter ask: is this job due,
// when does it fire next, and what is its effective period.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Reboot is the normalized marker for run-at-load schedules. It never
// fires by clock; the launchd adapter maps it to RunAtLoad.
const Reboot = "@reboot"

// neverExpr is a syntactically valid expression that never matches a
// real date (February 30th).
const neverExpr = "0 0 30 2 *"

var (
	reCronField = regexp.MustCompile(`^[*0-9,\-/LW#]+$`)
	reEveryN    = regexp.MustCompile(`^(?:every\s+)?(\d+)\s+(minutes?|hours?|days?|weeks?|months?)$`)
	reAtTime    = regexp.MustCompile(`^at\s+(\d{1,2})(?::(\d{2}))?(?:\s*(am|pm))?$`)
	reOnNth     = regexp.MustCompile(`^on\s+(\d{1,2})(?:st|nd|rd|th)\s+of\s+(?:the\s+)?month(?:\s+at\s+(\d{1,2})(?::(\d{2}))?(?:\s*(am|pm))?)?$`)
	reOnList    = regexp.MustCompile(`^on\s+([a-z, ]+?)(?:\s+at\s+(\d{1,2})(?::(\d{2}))?(?:\s*(am|pm))?)?$`)
)

// fixedPhrases are the single-token and period-word schedules.
var fixedPhrases = map[string]string{
	"every minute": "* * * * *",
	"every hour":   "0 * * * *",
	"every day":    "0 0 * * *",
	"every week":   "0 0 * * 0",
	"every month":  "0 0 1 * *",
	"every year":   "0 0 1 1 *",

	"hourly":   "0 * * * *",
	"daily":    "0 0 * * *",
	"weekly":   "0 0 * * 0",
	"monthly":  "0 0 1 * *",
	"yearly":   "0 0 1 1 *",
	"annually": "0 0 1 1 *",

	"midnight": "0 0 * * *",
	"noon":     "0 12 * * *",
	"morning":  "0 9 * * *",
	"evening":  "0 18 * * *",

	"weekdays": "0 0 * * 1-5",
	"weekends": "0 0 * * 0,6",

	"first day of month":    "0 0 1 * *",
	"middle of month":       "0 0 15 * *",
	"last day of month":     "0 0 L * *",
	"first of the month":    "0 0 1 * *",
	"middle of the month":   "0 0 15 * *",
	"last day of the month": "0 0 L * *",

	"business hours": "0 9-17 * * 1-5",

	"never": neverExpr,
}

var weekdayNumbers = map[string]int{
	"sunday": 0, "sun": 0,
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2, "tues": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4, "thur": 4, "thurs": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
}

// Normalize converts a schedule string into a five-field cron
// expression, the Reboot marker, or an error. Human phrases are matched
// case-insensitively after whitespace trimming; a string that already
// looks like five cron fields passes through with its fields upper-cased.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", fmt.Errorf("schedule: empty schedule")
	}

	if s == "reboot" || s == "startup" || s == Reboot {
		return Reboot, nil
	}

	if expr, ok := fixedPhrases[s]; ok {
		return expr, nil
	}

	if expr, ok := cronPassthrough(s); ok {
		return expr, nil
	}

	if m := reEveryN.FindStringSubmatch(s); m != nil {
		return quantified(m[1], m[2])
	}

	if m := reAtTime.FindStringSubmatch(s); m != nil {
		hour, minute, err := clockTime(m[1], m[2], m[3])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}

	if m := reOnNth.FindStringSubmatch(s); m != nil {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			return "", fmt.Errorf("schedule: day of month %q out of range", m[1])
		}
		hour, minute := 0, 0
		if m[2] != "" {
			hour, minute, err = clockTime(m[2], m[3], m[4])
			if err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, day), nil
	}

	if m := reOnList.FindStringSubmatch(s); m != nil {
		days, err := weekdayList(m[1])
		if err == nil {
			hour, minute := 0, 0
			if m[2] != "" {
				hour, minute, err = clockTime(m[2], m[3], m[4])
				if err != nil {
					return "", err
				}
			}
			return fmt.Sprintf("%d %d * * %s", minute, hour, days), nil
		}
		// Not a weekday list; fall through to the bare-weekday check.
	}

	if n, ok := weekdayNumbers[s]; ok {
		return fmt.Sprintf("0 0 * * %d", n), nil
	}

	return "", fmt.Errorf("schedule: unrecognized schedule %q", raw)
}

// cronPassthrough accepts a string of exactly five whitespace-separated
// fields drawn from the cron character set.
func cronPassthrough(s string) (string, bool) {
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return "", false
	}
	for _, f := range fields {
		if !reCronField.MatchString(strings.ToUpper(f)) {
			return "", false
		}
	}
	// Preserve L/W markers in upper case regardless of input casing.
	for i, f := range fields {
		fields[i] = strings.ToUpper(f)
	}
	return strings.Join(fields, " "), true
}

// quantified renders "every N <unit>" forms. A single week becomes the
// weekly Sunday expression; N > 1 weeks become day-of-month steps of
// 7·N days, the closest five-field rendering cron has.
func quantified(nStr, unit string) (string, error) {
	n, err := strconv.Atoi(nStr)
	if err != nil || n < 1 {
		return "", fmt.Errorf("schedule: invalid count %q", nStr)
	}
	switch strings.TrimSuffix(unit, "s") {
	case "minute":
		if n > 59 {
			return "", fmt.Errorf("schedule: minute step %d out of range", n)
		}
		if n == 1 {
			return "* * * * *", nil
		}
		return fmt.Sprintf("*/%d * * * *", n), nil
	case "hour":
		if n > 23 {
			return "", fmt.Errorf("schedule: hour step %d out of range", n)
		}
		if n == 1 {
			return "0 * * * *", nil
		}
		return fmt.Sprintf("0 */%d * * *", n), nil
	case "day":
		if n > 31 {
			return "", fmt.Errorf("schedule: day step %d out of range", n)
		}
		if n == 1 {
			return "0 0 * * *", nil
		}
		return fmt.Sprintf("0 0 */%d * *", n), nil
	case "week":
		if n*7 > 31 {
			return "", fmt.Errorf("schedule: week step %d out of range", n)
		}
		if n == 1 {
			return "0 0 * * 0", nil
		}
		return fmt.Sprintf("0 0 */%d * *", n*7), nil
	case "month":
		if n > 12 {
			return "", fmt.Errorf("schedule: month step %d out of range", n)
		}
		if n == 1 {
			return "0 0 1 * *", nil
		}
		return fmt.Sprintf("0 0 1 */%d *", n), nil
	}
	return "", fmt.Errorf("schedule: unrecognized unit %q", unit)
}

// clockTime maps an hour/minute/meridiem triple onto 24-hour values.
// "12 am" is hour 0, "12 pm" is hour 12, and pm adds twelve to 1–11.
func clockTime(hourStr, minuteStr, meridiem string) (hour, minute int, err error) {
	hour, err = strconv.Atoi(hourStr)
	if err != nil {
		return 0, 0, fmt.Errorf("schedule: invalid hour %q", hourStr)
	}
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil || minute > 59 {
			return 0, 0, fmt.Errorf("schedule: invalid minute %q", minuteStr)
		}
	}

	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("schedule: hour %d out of 12-hour range", hour)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("schedule: hour %d out of 12-hour range", hour)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, fmt.Errorf("schedule: hour %d out of range", hour)
		}
	}
	return hour, minute, nil
}

// weekdayList renders a comma-separated set of weekday names, or the
// words weekdays/weekends, as a cron day-of-week list.
func weekdayList(list string) (string, error) {
	var nums []int
	seen := map[int]bool{}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "weekdays":
			for d := 1; d <= 5; d++ {
				if !seen[d] {
					seen[d] = true
					nums = append(nums, d)
				}
			}
		case "weekends":
			for _, d := range []int{0, 6} {
				if !seen[d] {
					seen[d] = true
					nums = append(nums, d)
				}
			}
		default:
			d, ok := weekdayNumbers[part]
			if !ok {
				return "", fmt.Errorf("schedule: unknown weekday %q", part)
			}
			if !seen[d] {
				seen[d] = true
				nums = append(nums, d)
			}
		}
	}
	if len(nums) == 0 {
		return "", fmt.Errorf("schedule: empty weekday list")
	}
	parts := make([]string, len(nums))
	for i, d := range nums {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ","), nil
}
