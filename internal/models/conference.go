package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInsufficientSeats — бронирование увело бы SeatsAvailable в минус.
var ErrInsufficientSeats = errors.New("insufficient seats")

// Значения по умолчанию для формы конференции.
const (
	DefaultCity = "Default City"
)

// DefaultTopics — темы конференции, если форма их не задала.
var DefaultTopics = []string{"Default", "Topic"}

// ConferenceForm — входные данные для создания конференции.
type ConferenceForm struct {
	Name         string
	Description  string
	Topics       []string
	City         string
	StartDate    time.Time
	EndDate      time.Time
	MaxAttendees int
}

// Conference — конференция, принадлежащая профилю организатора.
//
// Инвариант: 0 <= SeatsAvailable <= MaxAttendees. Менять SeatsAvailable
// можно только через BookSeats/GiveBackSeats внутри транзакции хранилища.
type Conference struct {
	Key             ConferenceKey
	Name            string
	Description     string
	Topics          []string
	City            string
	StartDate       time.Time
	EndDate         time.Time
	Month           int
	MaxAttendees    int
	SeatsAvailable  int
	OrganizerUserID string
}

// NewConference собирает новую конференцию из формы с подстановкой дефолтов.
// SeatsAvailable = MaxAttendees, Month вычисляется из StartDate (0, если даты нет).
func NewConference(key ConferenceKey, form ConferenceForm) *Conference {
	city := strings.TrimSpace(form.City)
	if city == "" {
		city = DefaultCity
	}

	topics := normalizeTopics(form.Topics)
	if len(topics) == 0 {
		topics = slices.Clone(DefaultTopics)
	}

	c := &Conference{
		Key:             key,
		Name:            strings.TrimSpace(form.Name),
		Description:     strings.TrimSpace(form.Description),
		Topics:          topics,
		City:            city,
		StartDate:       form.StartDate,
		EndDate:         form.EndDate,
		MaxAttendees:    form.MaxAttendees,
		SeatsAvailable:  form.MaxAttendees,
		OrganizerUserID: key.OwnerID,
	}

	if !form.StartDate.IsZero() {
		c.Month = int(form.StartDate.Month())
	}

	return c
}

// normalizeTopics убирает пустые и повторяющиеся темы, сохраняя порядок.
func normalizeTopics(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}

	return out
}

// BookSeats уменьшает SeatsAvailable на n.
// Если мест не хватает, запись не меняется и возвращается ErrInsufficientSeats.
func (c *Conference) BookSeats(n int) error {
	if n < 0 {
		return fmt.Errorf("book %d seats: negative count", n)
	}

	if c.SeatsAvailable < n {
		return ErrInsufficientSeats
	}

	c.SeatsAvailable -= n

	return nil
}

// GiveBackSeats возвращает n мест, но не выше MaxAttendees.
func (c *Conference) GiveBackSeats(n int) {
	if n <= 0 {
		return
	}

	c.SeatsAvailable = min(c.SeatsAvailable+n, c.MaxAttendees)
}

// HasTopic сообщает, входит ли тема в список конференции.
func (c *Conference) HasTopic(topic string) bool {
	return slices.Contains(c.Topics, topic)
}

// Clone возвращает глубокую копию конференции.
func (c *Conference) Clone() *Conference {
	if c == nil {
		return nil
	}

	cp := *c
	cp.Topics = slices.Clone(c.Topics)

	return &cp
}

// String — человекочитаемое описание, используется в письме организатору.
func (c *Conference) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Id: %d\n", c.Key.ID)
	fmt.Fprintf(&b, "Name: %s\n", c.Name)
	if c.City != "" {
		fmt.Fprintf(&b, "City: %s\n", c.City)
	}
	if len(c.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(c.Topics, ", "))
	}
	if !c.StartDate.IsZero() {
		fmt.Fprintf(&b, "StartDate: %s\n", c.StartDate.Format(time.DateOnly))
	}
	if !c.EndDate.IsZero() {
		fmt.Fprintf(&b, "EndDate: %s\n", c.EndDate.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "Max Attendees: %d\n", c.MaxAttendees)

	return b.String()
}
