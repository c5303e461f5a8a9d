package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProfile_Defaults(t *testing.T) {
	t.Parallel()

	p := NewProfile(User{ID: "u1", Email: "alice@example.com"})

	require.Equal(t, "u1", p.UserID)
	require.Equal(t, "alice", p.DisplayName)
	require.Equal(t, "alice@example.com", p.MainEmail)
	require.Equal(t, TeeShirtNotSpecified, p.TeeShirtSize)
	require.Empty(t, p.ConferenceKeysToAttend)
}

func TestDisplayNameFromEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "bob", DisplayNameFromEmail("bob@x.org"))
	require.Equal(t, "no-at", DisplayNameFromEmail("no-at"))
	require.Equal(t, "", DisplayNameFromEmail("@x.org"))
}

func TestProfile_RegistrationSet(t *testing.T) {
	t.Parallel()

	p := &Profile{}

	require.True(t, p.AddConferenceKey("k1"))
	require.False(t, p.AddConferenceKey("k1"), "повторное добавление — дубль")
	require.True(t, p.AddConferenceKey("k2"))
	require.Equal(t, []string{"k1", "k2"}, p.ConferenceKeysToAttend)

	require.True(t, p.RemoveConferenceKey("k1"))
	require.False(t, p.RemoveConferenceKey("k1"))
	require.False(t, p.IsRegistered("k1"))
	require.True(t, p.IsRegistered("k2"))
}

func TestTeeShirtSize_TextRoundTrip(t *testing.T) {
	t.Parallel()

	for s := TeeShirtNotSpecified; s <= TeeShirtXXXL; s++ {
		b, err := s.MarshalText()
		require.NoError(t, err)

		var got TeeShirtSize
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, s, got)
	}

	var v struct {
		Size TeeShirtSize `json:"size"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"size":"xl"}`), &v))
	require.Equal(t, TeeShirtXL, v.Size)

	require.Error(t, json.Unmarshal([]byte(`{"size":"HUGE"}`), &v))
	require.Equal(t, "NOT_SPECIFIED", TeeShirtSize(42).String())
}
