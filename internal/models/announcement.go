package models

import (
	"strconv"
	"strings"
)

const (
	// AnnouncementKey — фиксированный ключ анонса в кэше.
	AnnouncementKey = "RECENT_ANNOUNCEMENTS"
	// NearlySoldOutSeats — конференции с 0 < SeatsAvailable < NearlySoldOutSeats попадают в анонс.
	NearlySoldOutSeats = 5

	announcementPrefix = "Last chance to attend! The following conferences are nearly sold out: "
)

// Announcement — текст анонса о почти распроданных конференциях.
type Announcement struct {
	Message string
}

// NearlySoldOutQuery — запрос конференций для анонса, по возрастанию свободных мест.
func NearlySoldOutQuery() ConferenceQuery {
	return ConferenceQuery{
		Filters: []Filter{
			{Field: FieldSeatsAvailable, Operator: OpGT, Value: "0", Number: 0},
			{Field: FieldSeatsAvailable, Operator: OpLT, Value: strconv.Itoa(NearlySoldOutSeats), Number: NearlySoldOutSeats},
		},
		OrderBy: FieldSeatsAvailable,
	}
}

// BuildAnnouncement собирает анонс из списка конференций.
// Пустые имена пропускаются; для пустого списка возвращает ok=false.
func BuildAnnouncement(conferences []*Conference) (Announcement, bool) {
	if len(conferences) == 0 {
		return Announcement{}, false
	}

	names := make([]string, 0, len(conferences))
	for _, c := range conferences {
		if c == nil || c.Name == "" {
			continue
		}
		names = append(names, c.Name)
	}

	return Announcement{Message: announcementPrefix + strings.Join(names, ", ")}, true
}
