package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_borrow_return/models"
)

var (
	now       = time.Date(2025, 2, 5, 10, 0, 0, 0, time.UTC)
	classroom = &models.Room{ID: "r1", Code: "CB8720", Type: "Classroom", Status: models.RoomAvailable}
	lab       = &models.Room{ID: "r2", Code: "CB8785", Type: "Laboratory", Status: models.RoomAvailable}
)

func at(day, hour int) time.Time { return time.Date(2025, 2, day, hour, 0, 0, 0, time.UTC) }

func bookingsFixture() []models.RoomBooking {
	cancelled := at(1, 8)
	return []models.RoomBooking{
		{ID: "b1", RoomID: "r1", Room: classroom, UserName: "Somchai", Purpose: "Programming lecture", StartAt: at(1, 9), EndAt: at(1, 12)},
		{ID: "b2", RoomID: "r2", Room: lab, UserName: "Anong", Purpose: "Lab session", StartAt: at(3, 13), EndAt: at(3, 15), CancelledAt: &cancelled},
		{ID: "b3", RoomID: "r1", Room: classroom, UserName: "Preecha", Purpose: "Seminar", StartAt: at(5, 9), EndAt: at(5, 11)},
		{ID: "b4", RoomID: "r2", Room: lab, UserName: "Somchai", Purpose: "Workshop", StartAt: at(7, 9), EndAt: at(7, 12)},
	}
}

func bookingIDs(list []models.RoomBooking) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

func Test_BookingStatus(t *testing.T) {
	list := bookingsFixture()

	assert.Equal(t, BookingCompleted, BookingStatus(list[0], now))
	assert.Equal(t, BookingCancelled, BookingStatus(list[1], now))
	assert.Equal(t, BookingUpcoming, BookingStatus(list[2], now)) // in progress
	assert.Equal(t, BookingUpcoming, BookingStatus(list[3], now))
}

func Test_CheckBooking(t *testing.T) {
	existing := bookingsFixture()

	tests := []struct {
		name string
		room models.Room
		b    models.RoomBooking
		want error
	}{
		{"free slot", *classroom, models.RoomBooking{RoomID: "r1", StartAt: at(5, 11), EndAt: at(5, 12)}, nil},
		{"overlap", *classroom, models.RoomBooking{RoomID: "r1", StartAt: at(5, 10), EndAt: at(5, 12)}, ErrRoomOverlap},
		{"cancelled slot is free", *lab, models.RoomBooking{RoomID: "r2", StartAt: at(3, 13), EndAt: at(3, 15)}, nil},
		{"other room same time", *lab, models.RoomBooking{RoomID: "r2", StartAt: at(5, 9), EndAt: at(5, 11)}, nil},
		{"empty window", *classroom, models.RoomBooking{RoomID: "r1", StartAt: at(9, 9), EndAt: at(9, 9)}, ErrInvalidBookingWindow},
		{"unavailable room", models.Room{Code: "X", Status: models.RoomUnavailable}, models.RoomBooking{RoomID: "r9", StartAt: at(9, 9), EndAt: at(9, 10)}, ErrRoomUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckBooking(tc.room, tc.b, existing, time.UTC)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func Test_FilterBookings(t *testing.T) {
	week, err := RangeFor("week", "", "", now, time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter BookingFilter
		want   []string
	}{
		{"all, latest first", BookingFilter{}, []string{"b4", "b3", "b2", "b1"}},
		{"search room code", BookingFilter{Search: "cb8785"}, []string{"b4", "b2"}},
		{"search purpose", BookingFilter{Search: "seminar"}, []string{"b3"}},
		{"status completed", BookingFilter{Status: BookingCompleted}, []string{"b1"}},
		{"status upcoming", BookingFilter{Status: BookingUpcoming}, []string{"b4", "b3"}},
		{"room type", BookingFilter{RoomType: "Laboratory"}, []string{"b4", "b2"}},
		{"week range", BookingFilter{Range: week}, []string{"b4", "b3", "b2", "b1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, bookingIDs(FilterBookings(bookingsFixture(), tc.filter, now)))
		})
	}
}

func Test_UpcomingSchedule(t *testing.T) {
	list := bookingsFixture()
	list = append(list, models.RoomBooking{ID: "b5", RoomID: "r1", StartAt: at(5, 7), EndAt: at(5, 8)})

	days := UpcomingSchedule(list, now, time.UTC)

	require.Len(t, days, 2)
	assert.Equal(t, "2025-02-05", days[0].Date)
	assert.Equal(t, []string{"b5", "b3"}, bookingIDs(days[0].Bookings))
	assert.Equal(t, "2025-02-07", days[1].Date)
}

func Test_RangeFor(t *testing.T) {
	today, err := RangeFor("today", "", "", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, today.Contains(at(5, 0)))
	assert.True(t, today.Contains(at(5, 23)))
	assert.False(t, today.Contains(at(6, 0)))

	month, err := RangeFor("month", "", "", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, month.Contains(time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.False(t, month.Contains(time.Date(2025, 1, 4, 23, 0, 0, 0, time.UTC)))

	custom, err := RangeFor("custom", "2025-02-01", "2025-02-03", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, custom.Contains(at(3, 23)))
	assert.False(t, custom.Contains(at(4, 0)))

	open, err := RangeFor("custom", "", "", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, open.Contains(time.Time{}.Add(time.Hour)))

	_, err = RangeFor("custom", "2025-02-05", "2025-02-01", now, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = RangeFor("fortnight", "", "", now, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func Test_FilterRooms(t *testing.T) {
	rooms := SeedRooms()

	assert.Len(t, FilterRooms(rooms, RoomFilter{Search: "cb87"}), 2)
	assert.Len(t, FilterRooms(rooms, RoomFilter{Search: "lab"}), 1)
	assert.Len(t, FilterRooms(rooms, RoomFilter{Status: models.RoomAvailable}), 1)
	assert.Len(t, FilterRooms(rooms, RoomFilter{Type: "Classroom", Status: "all"}), 1)
}

func Test_ValidateNewRoom(t *testing.T) {
	r, err := ValidateNewRoom(NewRoom{Code: " cb9001 ", Name: "Studio"})
	require.NoError(t, err)
	assert.Equal(t, "CB9001", r.Code)
	assert.Equal(t, "Studio", r.Type)
	assert.Equal(t, models.RoomAvailable, r.Status)

	_, err = ValidateNewRoom(NewRoom{Code: "X"})
	assert.ErrorIs(t, err, ErrInvalidRoom)

	st, err := ParseRoomStatus("Unavailable")
	require.NoError(t, err)
	assert.Equal(t, models.RoomUnavailable, st)
	_, err = ParseRoomStatus("busy")
	assert.ErrorIs(t, err, ErrInvalidRoom)
}

func Test_CheckBooking_OverlapNamesWindowInLocation(t *testing.T) {
	bkk := time.FixedZone("ICT", 7*60*60)
	clash := models.RoomBooking{RoomID: "r1", StartAt: at(5, 10), EndAt: at(5, 12)}

	err := CheckBooking(*classroom, clash, bookingsFixture(), bkk)

	require.ErrorIs(t, err, ErrRoomOverlap)
	assert.Contains(t, err.Error(), "16:00-18:00")
}
