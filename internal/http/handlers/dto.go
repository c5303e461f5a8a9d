package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/pribylovaa/go-conference-central/internal/models"
	"github.com/pribylovaa/go-conference-central/internal/service"
)

// Формат дат в формах и ответах.
const dateLayout = time.DateOnly

var errBadDate = errors.New("date must be YYYY-MM-DD")

// Профиль пользователя.
type Profile struct {
	DisplayName            string   `json:"display_name"`
	MainEmail              string   `json:"main_email"`
	TeeShirtSize           string   `json:"tee_shirt_size"`
	ConferenceKeysToAttend []string `json:"conference_keys_to_attend"`
}

// Запрос на изменение профиля; отсутствующие поля не меняются.
type ProfileForm struct {
	DisplayName  *string `json:"display_name,omitempty"`
	TeeShirtSize *string `json:"tee_shirt_size,omitempty"`
}

// Форма создания конференции.
type ConferenceForm struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	City         string   `json:"city,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	MaxAttendees int      `json:"max_attendees"`
}

type Conference struct {
	WebsafeKey      string   `json:"websafe_key"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Topics          []string `json:"topics"`
	City            string   `json:"city"`
	StartDate       string   `json:"start_date,omitempty"`
	EndDate         string   `json:"end_date,omitempty"`
	Month           int      `json:"month"`
	MaxAttendees    int      `json:"max_attendees"`
	SeatsAvailable  int      `json:"seats_available"`
	OrganizerUserID string   `json:"organizer_user_id"`
}

type Conferences struct {
	Items []Conference `json:"items"`
}

// Фильтр запроса конференций: field/operator — имена вида CITY, GTEQ (регистр не важен).
type QueryFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type QueryForm struct {
	Filters []QueryFilter `json:"filters"`
	OrderBy string        `json:"order_by,omitempty"`
}

// Итог регистрации/отмены регистрации.
type Registration struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

type Announcement struct {
	Message string `json:"message"`
}

type AnnouncementRefresh struct {
	Updated bool `json:"updated"`
}

func profileFromModel(p *models.Profile) Profile {
	keys := p.ConferenceKeysToAttend
	if keys == nil {
		keys = []string{}
	}

	return Profile{
		DisplayName:            p.DisplayName,
		MainEmail:              p.MainEmail,
		TeeShirtSize:           p.TeeShirtSize.String(),
		ConferenceKeysToAttend: keys,
	}
}

func (f ProfileForm) toService() (service.ProfileForm, error) {
	out := service.ProfileForm{DisplayName: f.DisplayName}

	if f.TeeShirtSize != nil {
		size, err := models.ParseTeeShirtSize(*f.TeeShirtSize)
		if err != nil {
			return service.ProfileForm{}, err
		}
		out.TeeShirtSize = &size
	}

	return out, nil
}

func (f ConferenceForm) toModel() (models.ConferenceForm, error) {
	start, err := parseDate(f.StartDate)
	if err != nil {
		return models.ConferenceForm{}, err
	}
	end, err := parseDate(f.EndDate)
	if err != nil {
		return models.ConferenceForm{}, err
	}

	return models.ConferenceForm{
		Name:         f.Name,
		Description:  f.Description,
		Topics:       f.Topics,
		City:         f.City,
		StartDate:    start,
		EndDate:      end,
		MaxAttendees: f.MaxAttendees,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errBadDate
	}

	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func conferenceFromModel(c *models.Conference) Conference {
	return Conference{
		WebsafeKey:      c.Key.String(),
		Name:            c.Name,
		Description:     c.Description,
		Topics:          c.Topics,
		City:            c.City,
		StartDate:       formatDate(c.StartDate),
		EndDate:         formatDate(c.EndDate),
		Month:           c.Month,
		MaxAttendees:    c.MaxAttendees,
		SeatsAvailable:  c.SeatsAvailable,
		OrganizerUserID: c.OrganizerUserID,
	}
}

func conferencesFromModel(in []*models.Conference) Conferences {
	out := Conferences{Items: make([]Conference, 0, len(in))}
	for _, c := range in {
		out.Items = append(out.Items, conferenceFromModel(c))
	}
	return out
}

func (f QueryForm) toModel() models.ConferenceQuery {
	q := models.ConferenceQuery{
		Filters: make([]models.Filter, 0, len(f.Filters)),
		OrderBy: models.Field(strings.ToUpper(strings.TrimSpace(f.OrderBy))),
	}

	for _, flt := range f.Filters {
		q.Filters = append(q.Filters, models.Filter{
			Field:    models.Field(strings.ToUpper(strings.TrimSpace(flt.Field))),
			Operator: models.Operator(strings.ToUpper(strings.TrimSpace(flt.Operator))),
			Value:    flt.Value,
		})
	}

	return q
}
