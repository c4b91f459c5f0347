package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/models"
)

const (
	BookingUpcoming  = "upcoming"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// BookingStatus is derived, never stored.
func BookingStatus(b models.RoomBooking, now time.Time) string {
	switch {
	case b.CancelledAt != nil:
		return BookingCancelled
	case !b.EndAt.After(now):
		return BookingCompleted
	default:
		return BookingUpcoming
	}
}

// CheckBooking validates a new booking against the room and its other bookings.
// A clash names the other booking's window in loc.
func CheckBooking(room models.Room, b models.RoomBooking, existing []models.RoomBooking, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if room.Status != models.RoomAvailable {
		return fmt.Errorf("%w: %s", ErrRoomUnavailable, room.Code)
	}
	if !b.EndAt.After(b.StartAt) {
		return ErrInvalidBookingWindow
	}
	for _, o := range existing {
		if o.ID == b.ID || o.CancelledAt != nil || o.RoomID != b.RoomID {
			continue
		}
		if b.StartAt.Before(o.EndAt) && o.StartAt.Before(b.EndAt) {
			return fmt.Errorf("%w: %s-%s", ErrRoomOverlap,
				o.StartAt.In(loc).Format("15:04"), o.EndAt.In(loc).Format("15:04"))
		}
	}
	return nil
}

type BookingFilter struct {
	Search   string // room code, user name or purpose
	Status   string // upcoming|completed|cancelled, empty or "all" = any
	RoomType string
	Range    DateRange
}

// FilterBookings returns the matching bookings, latest start first.
// Bookings without a preloaded Room never match a RoomType filter.
func FilterBookings(list []models.RoomBooking, f BookingFilter, now time.Time) []models.RoomBooking {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.RoomBooking, 0, len(list))
	for _, b := range list {
		if q != "" && !bookingMatches(b, q) {
			continue
		}
		if f.Status != "" && f.Status != "all" && BookingStatus(b, now) != f.Status {
			continue
		}
		if f.RoomType != "" && f.RoomType != "all" && (b.Room == nil || b.Room.Type != f.RoomType) {
			continue
		}
		if !f.Range.Contains(b.StartAt) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	return out
}

func bookingMatches(b models.RoomBooking, q string) bool {
	if strings.Contains(strings.ToLower(b.UserName), q) || strings.Contains(strings.ToLower(b.Purpose), q) {
		return true
	}
	return b.Room != nil && strings.Contains(strings.ToLower(b.Room.Code), q)
}

// DaySchedule is one calendar day of a room's bookings, earliest first.
type DaySchedule struct {
	Date     string               `json:"date"` // YYYY-MM-DD
	Bookings []models.RoomBooking `json:"bookings"`
}

// UpcomingSchedule groups non-cancelled bookings from today onward by day.
func UpcomingSchedule(list []models.RoomBooking, now time.Time, loc *time.Location) []DaySchedule {
	if loc == nil {
		loc = time.UTC
	}
	today := dayStart(now, loc)
	byDay := map[string][]models.RoomBooking{}
	for _, b := range list {
		if b.CancelledAt != nil || b.StartAt.In(loc).Before(today) {
			continue
		}
		key := b.StartAt.In(loc).Format("2006-01-02")
		byDay[key] = append(byDay[key], b)
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DaySchedule, 0, len(days))
	for _, d := range days {
		bs := byDay[d]
		sort.SliceStable(bs, func(i, j int) bool { return bs[i].StartAt.Before(bs[j].StartAt) })
		out = append(out, DaySchedule{Date: d, Bookings: bs})
	}
	return out
}
