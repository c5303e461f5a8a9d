// models содержит доменные сущности conference-service.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"fmt"
	"slices"
	"strings"
)

// TeeShirtSize — размер футболки участника.
type TeeShirtSize int8

const (
	TeeShirtNotSpecified TeeShirtSize = iota
	TeeShirtXS
	TeeShirtS
	TeeShirtM
	TeeShirtL
	TeeShirtXL
	TeeShirtXXL
	TeeShirtXXXL
)

var teeShirtNames = [...]string{
	TeeShirtNotSpecified: "NOT_SPECIFIED",
	TeeShirtXS:           "XS",
	TeeShirtS:            "S",
	TeeShirtM:            "M",
	TeeShirtL:            "L",
	TeeShirtXL:           "XL",
	TeeShirtXXL:          "XXL",
	TeeShirtXXXL:         "XXXL",
}

func (s TeeShirtSize) String() string {
	if s.Valid() {
		return teeShirtNames[s]
	}

	return teeShirtNames[TeeShirtNotSpecified]
}

// Valid сообщает, входит ли значение в допустимый диапазон enum.
func (s TeeShirtSize) Valid() bool {
	return s >= TeeShirtNotSpecified && s <= TeeShirtXXXL
}

// ParseTeeShirtSize разбирает строковое имя размера (регистр не важен).
func ParseTeeShirtSize(s string) (TeeShirtSize, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return TeeShirtNotSpecified, nil
	}

	for i, n := range teeShirtNames {
		if n == name {
			return TeeShirtSize(i), nil
		}
	}

	return TeeShirtNotSpecified, fmt.Errorf("unknown tee shirt size %q", s)
}

func (s TeeShirtSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TeeShirtSize) UnmarshalText(b []byte) error {
	v, err := ParseTeeShirtSize(string(b))
	if err != nil {
		return err
	}

	*s = v

	return nil
}

// User — аутентифицированная личность, которую отдаёт слой аутентификации.
type User struct {
	ID    string
	Email string
}

// Profile — профиль пользователя.
// ConferenceKeysToAttend — множество websafe-ключей конференций,
// на которые пользователь зарегистрирован; уникальность ключей
// поддерживает движок регистрации.
type Profile struct {
	UserID                 string
	DisplayName            string
	MainEmail              string
	TeeShirtSize           TeeShirtSize
	ConferenceKeysToAttend []string
}

// NewProfile создаёт профиль с дефолтами: имя — локальная часть email,
// размер футболки — NOT_SPECIFIED.
func NewProfile(user User) *Profile {
	return &Profile{
		UserID:       user.ID,
		DisplayName:  DisplayNameFromEmail(user.Email),
		MainEmail:    user.Email,
		TeeShirtSize: TeeShirtNotSpecified,
	}
}

// DisplayNameFromEmail возвращает часть email до "@".
func DisplayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}

	return email
}

// IsRegistered сообщает, есть ли ключ в наборе регистраций.
func (p *Profile) IsRegistered(key string) bool {
	return slices.Contains(p.ConferenceKeysToAttend, key)
}

// AddConferenceKey добавляет ключ, если его ещё нет. Возвращает false для дубля.
func (p *Profile) AddConferenceKey(key string) bool {
	if p.IsRegistered(key) {
		return false
	}

	p.ConferenceKeysToAttend = append(p.ConferenceKeysToAttend, key)

	return true
}

// RemoveConferenceKey удаляет ключ. Возвращает false, если ключа не было.
func (p *Profile) RemoveConferenceKey(key string) bool {
	i := slices.Index(p.ConferenceKeysToAttend, key)
	if i < 0 {
		return false
	}

	p.ConferenceKeysToAttend = slices.Delete(p.ConferenceKeysToAttend, i, i+1)

	return true
}

// Clone возвращает глубокую копию профиля.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	cp := *p
	cp.ConferenceKeysToAttend = slices.Clone(p.ConferenceKeysToAttend)

	return &cp
}
