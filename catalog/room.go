package catalog

import (
	"fmt"
	"strings"

	"Gin_postgres_redis_borrow_return/models"
)

type NewRoom struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Type string `json:"type"`
}

// ValidateNewRoom normalizes the form; the code is upper-cased and a missing type falls back to the name.
func ValidateNewRoom(n NewRoom) (models.Room, error) {
	code := strings.ToUpper(strings.TrimSpace(n.Code))
	name := strings.TrimSpace(n.Name)
	if code == "" || name == "" {
		return models.Room{}, fmt.Errorf("%w: code and name are required", ErrInvalidRoom)
	}
	typ := strings.TrimSpace(n.Type)
	if typ == "" {
		typ = name
	}
	return models.Room{Code: code, Name: name, Type: typ, Status: models.RoomAvailable}, nil
}

func ParseRoomStatus(s string) (string, error) {
	switch st := strings.ToLower(strings.TrimSpace(s)); st {
	case models.RoomAvailable, models.RoomUnavailable:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRoom, s)
}

type RoomFilter struct {
	Search string // code or name
	Type   string
	Status string
}

func FilterRooms(list []models.Room, f RoomFilter) []models.Room {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Room, 0, len(list))
	for _, r := range list {
		if q != "" && !strings.Contains(strings.ToLower(r.Code), q) && !strings.Contains(strings.ToLower(r.Name), q) {
			continue
		}
		if f.Type != "" && f.Type != "all" && r.Type != f.Type {
			continue
		}
		if f.Status != "" && f.Status != "all" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}
