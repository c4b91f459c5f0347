package lifecycle

import (
	"strings"
	"time"

	"Gin_postgres_redis_borrow_return/models"
)

// HistoryFilter narrows a transaction list. Zero fields match everything.
// From and To are compared by calendar day in the filter's location.
type HistoryFilter struct {
	Search     string
	Status     Status
	BorrowType BorrowType
	From       time.Time
	To         time.Time
}

type predicate func(*models.BorrowTransaction) bool

func (f HistoryFilter) predicates(loc *time.Location) []predicate {
	if loc == nil {
		loc = time.UTC
	}
	var ps []predicate
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		ps = append(ps, func(t *models.BorrowTransaction) bool { return matchesSearch(t, q) })
	}
	if f.Status != "" {
		ps = append(ps, func(t *models.BorrowTransaction) bool { return Status(t.Status) == f.Status })
	}
	if f.BorrowType != "" {
		ps = append(ps, func(t *models.BorrowTransaction) bool { return BorrowType(t.BorrowType) == f.BorrowType })
	}
	if !f.From.IsZero() {
		from := startOfDay(f.From, loc)
		ps = append(ps, func(t *models.BorrowTransaction) bool { return !t.BorrowAt.Before(from) })
	}
	if !f.To.IsZero() {
		until := startOfDay(f.To, loc).AddDate(0, 0, 1)
		ps = append(ps, func(t *models.BorrowTransaction) bool { return t.BorrowAt.Before(until) })
	}
	return ps
}

// FilterHistory keeps the order of list and returns the transactions passing every predicate.
func FilterHistory(list []models.BorrowTransaction, f HistoryFilter, loc *time.Location) []models.BorrowTransaction {
	ps := f.predicates(loc)
	out := make([]models.BorrowTransaction, 0, len(list))
next:
	for i := range list {
		for _, p := range ps {
			if !p(&list[i]) {
				continue next
			}
		}
		out = append(out, list[i])
	}
	return out
}

func matchesSearch(t *models.BorrowTransaction, q string) bool {
	if strings.Contains(strings.ToLower(t.UserName), q) ||
		strings.Contains(strings.ToLower(t.UserEmail), q) ||
		strings.Contains(strings.ToLower(t.UserIDNumber), q) {
		return true
	}
	for _, it := range t.EquipmentItems {
		if strings.Contains(strings.ToLower(it.EquipmentName), q) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
