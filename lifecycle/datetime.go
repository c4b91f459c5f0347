package lifecycle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DisplayDateLayout  = "02/01/2006"
	DisplayClockLayout = "15:04"

	// Years at or above this are Buddhist era (Gregorian + 543).
	buddhistEraThreshold = 2400
	buddhistEraOffset    = 543
)

// ParseDisplayDateTime turns a form date (DD/MM/YYYY, D/M/YYYY or YYYY-MM-DD, Buddhist era
// accepted) and an optional HH:MM clock into one instant in loc. An empty clock means 00:00.
func ParseDisplayDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
	}

	day, month, year, ok := splitDate(date)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrValidation, date)
	}
	if year >= buddhistEraThreshold {
		year -= buddhistEraOffset
	}
	// validated after the era shift: 29/02/2567 is 29 Feb 2024
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrValidation, date)
	}

	hour, minute := 0, 0
	if clock != "" {
		c, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad time %q", ErrValidation, clock)
		}
		hour, minute = c.Hour(), c.Minute()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc), nil
}

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

func splitDate(s string) (day, month, year int, ok bool) {
	var d, m, y string
	if p := slashDate.FindStringSubmatch(s); p != nil {
		d, m, y = p[1], p[2], p[3]
	} else if p := isoDate.FindStringSubmatch(s); p != nil {
		y, m, d = p[1], p[2], p[3]
	} else {
		return 0, 0, 0, false
	}
	day, _ = strconv.Atoi(d)
	month, _ = strconv.Atoi(m)
	year, _ = strconv.Atoi(y)
	return day, month, year, true
}

func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayDateLayout)
}

func FormatClock(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayClockLayout)
}
