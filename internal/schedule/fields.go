package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldSet is one parsed cron field: either a wildcard, the last-day
// marker, or an explicit sorted value list.
type FieldSet struct {
	Wildcard bool
	Last     bool // day-of-month "L"
	Values   []int
}

// Fields is a five-field cron expression decomposed into value sets.
// The launchd adapter expands these into calendar-interval records; the
// evaluator uses them for expressions robfig/cron cannot represent.
type Fields struct {
	Minute  FieldSet
	Hour    FieldSet
	Day     FieldSet
	Month   FieldSet
	Weekday FieldSet
}

type fieldBounds struct {
	name     string
	min, max int
}

var bounds = [5]fieldBounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// ParseFields decomposes a five-field cron expression. "L" is accepted
// only in the day field; "W" and "#" are not supported by the evaluator
// or the launchd expansion and are rejected here.
func ParseFields(expr string) (Fields, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return Fields{}, fmt.Errorf("schedule: expected 5 cron fields, got %d in %q", len(parts), expr)
	}

	var sets [5]FieldSet
	for i, part := range parts {
		set, err := parseField(part, bounds[i])
		if err != nil {
			return Fields{}, err
		}
		if set.Last && bounds[i].name != "day" {
			return Fields{}, fmt.Errorf("schedule: %q is only valid in the day field", part)
		}
		sets[i] = set
	}

	return Fields{
		Minute:  sets[0],
		Hour:    sets[1],
		Day:     sets[2],
		Month:   sets[3],
		Weekday: sets[4],
	}, nil
}

func parseField(part string, b fieldBounds) (FieldSet, error) {
	if part == "*" {
		return FieldSet{Wildcard: true}, nil
	}
	if strings.EqualFold(part, "L") {
		return FieldSet{Last: true}, nil
	}
	if strings.ContainsAny(part, "WL#") {
		return FieldSet{}, fmt.Errorf("schedule: unsupported cron marker in %s field %q", b.name, part)
	}

	seen := map[int]bool{}
	var values []int
	add := func(v int) {
		// Cron day-of-week 7 is an alias for Sunday.
		if b.name == "weekday" && v == 7 {
			v = 0
		}
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}

	for _, elem := range strings.Split(part, ",") {
		if elem == "" {
			return FieldSet{}, fmt.Errorf("schedule: empty element in %s field %q", b.name, part)
		}
		body, step := elem, 1
		if idx := strings.IndexByte(elem, '/'); idx >= 0 {
			n, err := strconv.Atoi(elem[idx+1:])
			if err != nil || n < 1 {
				return FieldSet{}, fmt.Errorf("schedule: invalid step in %s field %q", b.name, elem)
			}
			body, step = elem[:idx], n
		}

		lo, hi := b.min, b.max
		switch {
		case body == "*":
			// Full range.
		case strings.Contains(body, "-"):
			rangeParts := strings.SplitN(body, "-", 2)
			a, errA := strconv.Atoi(rangeParts[0])
			z, errZ := strconv.Atoi(rangeParts[1])
			if errA != nil || errZ != nil || a > z {
				return FieldSet{}, fmt.Errorf("schedule: invalid range in %s field %q", b.name, elem)
			}
			lo, hi = a, z
		default:
			v, err := strconv.Atoi(body)
			if err != nil {
				return FieldSet{}, fmt.Errorf("schedule: invalid value in %s field %q", b.name, elem)
			}
			if step > 1 {
				// "a/n" means a-max/n in cron.
				lo, hi = v, b.max
				break
			}
			lo, hi = v, v
		}

		max := b.max
		if b.name == "weekday" {
			max = 7 // allow 7 as Sunday alias before folding
		}
		if lo < b.min || hi > max {
			return FieldSet{}, fmt.Errorf("schedule: %s value out of range in %q", b.name, elem)
		}
		for v := lo; v <= hi; v += step {
			add(v)
		}
	}

	sort.Ints(values)
	return FieldSet{Values: values}, nil
}

// ValuesOrNil returns the concrete values of a field; a wildcard
// yields nil (meaning "every value").
func (f FieldSet) ValuesOrNil() []int {
	if f.Wildcard {
		return nil
	}
	return f.Values
}

// Contains reports whether the set admits v. Wildcards admit
// everything; the Last marker admits nothing here (callers resolve it
// against a concrete month).
func (f FieldSet) Contains(v int) bool {
	if f.Wildcard {
		return true
	}
	for _, x := range f.Values {
		if x == v {
			return true
		}
	}
	return false
}
