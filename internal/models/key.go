package models

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidKey — websafe-ключ не удалось разобрать.
var ErrInvalidKey = errors.New("invalid conference key")

// ConferenceKey — составной ключ конференции: профиль-владелец + выделенный числовой id.
type ConferenceKey struct {
	OwnerID string
	ID      int64
}

// String кодирует ключ в websafe-строку: base64url("owner|id").
func (k ConferenceKey) String() string {
	raw := k.OwnerID + "|" + strconv.FormatInt(k.ID, 10)

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// IsZero сообщает, что ключ не задан.
func (k ConferenceKey) IsZero() bool {
	return k.OwnerID == "" && k.ID == 0
}

// ParseConferenceKey декодирует websafe-ключ обратно.
// Разделитель ищется с конца, поэтому "|" внутри id владельца допустим.
func ParseConferenceKey(s string) (ConferenceKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return ConferenceKey{}, ErrInvalidKey
	}

	i := strings.LastIndexByte(string(raw), '|')
	if i <= 0 {
		return ConferenceKey{}, ErrInvalidKey
	}

	id, err := strconv.ParseInt(string(raw[i+1:]), 10, 64)
	if err != nil || id <= 0 {
		return ConferenceKey{}, ErrInvalidKey
	}

	return ConferenceKey{OwnerID: string(raw[:i]), ID: id}, nil
}
