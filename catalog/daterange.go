package catalog

import (
	"fmt"
	"strings"
	"time"
)

// DateRange is a half-open [From, To) window. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// RangeFor resolves a preset (all, today, week, month, custom) against now.
// week and month look back 7 days and one month from the start of today.
// custom takes YYYY-MM-DD bounds; both are inclusive by day and either may be empty.
func RangeFor(preset, customFrom, customTo string, now time.Time, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := dayStart(now, loc)
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", "all":
		return DateRange{}, nil
	case "today":
		return DateRange{From: today, To: today.AddDate(0, 0, 1)}, nil
	case "week":
		return DateRange{From: today.AddDate(0, 0, -7)}, nil
	case "month":
		return DateRange{From: today.AddDate(0, -1, 0)}, nil
	case "custom":
		var r DateRange
		if customFrom != "" {
			from, err := time.ParseInLocation("2006-01-02", customFrom, loc)
			if err != nil {
				return DateRange{}, fmt.Errorf("%w: from %q", ErrInvalidRange, customFrom)
			}
			r.From = from
		}
		if customTo != "" {
			to, err := time.ParseInLocation("2006-01-02", customTo, loc)
			if err != nil {
				return DateRange{}, fmt.Errorf("%w: to %q", ErrInvalidRange, customTo)
			}
			r.To = to.AddDate(0, 0, 1)
		}
		if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
			return DateRange{}, fmt.Errorf("%w: from is after to", ErrInvalidRange)
		}
		return r, nil
	}
	return DateRange{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidRange, preset)
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
