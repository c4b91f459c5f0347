package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Gin_postgres_redis_borrow_return/models"
)

func historyFixture() []models.BorrowTransaction {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 10, 0, 0, 0, time.UTC) }
	return []models.BorrowTransaction{
		{
			ID: "b1", UserName: "Somchai", UserEmail: "somchai@uni.ac.th", UserIDNumber: "6401",
			BorrowType: string(BorrowDuringClass), Status: string(StatusScheduled), BorrowAt: day(1),
			EquipmentItems: []models.BorrowItem{{EquipmentID: "E1", EquipmentName: "Projector"}},
		},
		{
			ID: "b2", UserName: "Anong", UserEmail: "anong@uni.ac.th",
			BorrowType: string(BorrowTeaching), Status: string(StatusBorrowed), BorrowAt: day(5),
			EquipmentItems: []models.BorrowItem{{EquipmentID: "E2", EquipmentName: "Football"}},
		},
		{
			ID: "b3", UserName: "Preecha", UserEmail: "preecha@uni.ac.th",
			BorrowType: string(BorrowOutsideClass), Status: string(StatusReturned), BorrowAt: day(10),
			EquipmentItems: []models.BorrowItem{{EquipmentID: "E3", EquipmentName: "Stopwatch"}},
		},
	}
}

func ids(list []models.BorrowTransaction) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func Test_FilterHistory(t *testing.T) {
	tests := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{"empty filter keeps all", HistoryFilter{}, []string{"b1", "b2", "b3"}},
		{"search by name", HistoryFilter{Search: "anong"}, []string{"b2"}},
		{"search by email", HistoryFilter{Search: "PREECHA@"}, []string{"b3"}},
		{"search by id number", HistoryFilter{Search: "6401"}, []string{"b1"}},
		{"search by equipment", HistoryFilter{Search: "foot"}, []string{"b2"}},
		{"status", HistoryFilter{Status: StatusReturned}, []string{"b3"}},
		{"borrow type", HistoryFilter{BorrowType: BorrowDuringClass}, []string{"b1"}},
		{"from is inclusive by day", HistoryFilter{From: time.Date(2025, 1, 5, 23, 0, 0, 0, time.UTC)}, []string{"b2", "b3"}},
		{"to is inclusive by day", HistoryFilter{To: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)}, []string{"b1", "b2"}},
		{"combined", HistoryFilter{Search: "uni.ac.th", Status: StatusBorrowed}, []string{"b2"}},
		{"nothing matches", HistoryFilter{Search: "zzz"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterHistory(historyFixture(), tc.filter, time.UTC)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}
