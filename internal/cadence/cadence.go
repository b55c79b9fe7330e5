package cadence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Unit is the calendar unit of a task's cadence.
type Unit string

const (
	Hour  Unit = "HOUR"
	Day   Unit = "DAY"
	Week  Unit = "WEEK"
	Month Unit = "MONTH"
	Year  Unit = "YEAR"
)

var (
	// ErrUnsupportedCadence is returned for units the calculator cannot compute.
	ErrUnsupportedCadence = errors.New("unsupported cadence")
	// ErrInvalidValue is returned when the cadence magnitude is not positive.
	ErrInvalidValue = fmt.Errorf("%w: value must be positive", ErrUnsupportedCadence)
	ErrUnknownUnit  = errors.New("unknown cadence unit")
)

// ParseUnit parses a unit name case-insensitively.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// Valid reports whether u is one of the known units, computable or not.
func (u Unit) Valid() bool {
	switch u {
	case Hour, Day, Week, Month, Year:
		return true
	}
	return false
}

// Supported reports whether Window can compute windows for u.
func (u Unit) Supported() bool {
	_, err := stepFor(u)
	return err == nil
}

// step returns the exclusive end of the window that begins at start.
type step func(start time.Time, value int) time.Time

func stepFor(u Unit) (step, error) {
	switch u {
	case Day:
		return dayEnd, nil
	case Week:
		return weekEnd, nil
	case Hour, Month, Year:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCadence, u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCadence, string(u))
	}
}

func dayEnd(start time.Time, value int) time.Time {
	return start.AddDate(0, 0, value)
}

// weekEnd spans 7 days for a single week. Longer cadences are one day short
// of 7*value so that chained windows do not repeat the boundary day.
func weekEnd(start time.Time, value int) time.Time {
	days := 7 * value
	if value > 1 {
		days--
	}
	return start.AddDate(0, 0, days)
}

// Window returns the [start, end) window for the given cadence. Index 0 starts
// at anchor; callers normally chain windows by passing the previous end as the
// next anchor with index 0. A positive index shifts the anchor by that many
// whole windows, which produces the same sequence.
func Window(unit Unit, value int, anchor time.Time, index int) (time.Time, time.Time, error) {
	next, err := stepFor(unit)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if value <= 0 {
		return time.Time{}, time.Time{}, ErrInvalidValue
	}
	if index < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("cadence: negative window index %d", index)
	}

	start := anchor
	for i := 0; i < index; i++ {
		start = next(start, value)
	}
	return start, next(start, value), nil
}
