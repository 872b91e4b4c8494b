package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("ROLE_TRAINER")
	assert.True(t, ok)
	assert.Equal(t, RoleTrainer, r)

	_, ok = ParseRole("role_trainer")
	assert.False(t, ok)

	_, ok = ParseRole("ROLE_SUPERUSER")
	assert.False(t, ok)
}

func TestParseRolesKeepsOrderAndDropsUnknown(t *testing.T) {
	roles := ParseRoles([]string{"ROLE_CLIENT", "ROLE_GHOST", "ROLE_ADMIN"})
	assert.Equal(t, []Role{RoleClient, RoleAdmin}, roles)
}

func TestJoinSplitRoles(t *testing.T) {
	joined := JoinRoles([]Role{RoleAdmin, RoleClient})
	assert.Equal(t, "ROLE_ADMIN,ROLE_CLIENT", joined)
	assert.Equal(t, []Role{RoleAdmin, RoleClient}, SplitRoles(joined))
	assert.Nil(t, SplitRoles(""))
}

func TestRedirectPath(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  string
	}{
		{"client", []Role{RoleClient}, "/client"},
		{"trainer", []Role{RoleTrainer}, "/trainer/dashboard"},
		{"nutritionist", []Role{RoleNutritionist}, "/nutritionist/dashboard"},
		{"admin", []Role{RoleAdmin}, "/admin/dashboard"},
		{"client wins over admin", []Role{RoleAdmin, RoleClient}, "/client"},
		{"nutritionist wins over client", []Role{RoleClient, RoleNutritionist}, "/nutritionist/dashboard"},
		{"trainer wins over admin", []Role{RoleAdmin, RoleTrainer}, "/trainer/dashboard"},
		{"none", nil, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedirectPath(tt.roles))
		})
	}
}

func TestProfileResource(t *testing.T) {
	res, ok := RoleTrainer.ProfileResource()
	assert.True(t, ok)
	assert.Equal(t, "trainers", res)

	_, ok = RoleAdmin.ProfileResource()
	assert.False(t, ok)
}

func TestSessionComplete(t *testing.T) {
	var nilSession *Session
	assert.False(t, nilSession.Complete())
	assert.False(t, (&Session{Token: "abc"}).Complete())
	assert.False(t, (&Session{Roles: []Role{RoleClient}}).Complete())
	assert.True(t, (&Session{Token: "abc", Roles: []Role{RoleClient}}).Complete())
}

func TestSessionPrimaryRole(t *testing.T) {
	s := &Session{Roles: []Role{"ROLE_UNKNOWN", RoleTrainer, RoleAdmin}}
	assert.Equal(t, RoleTrainer, s.PrimaryRole())
	assert.True(t, s.HasRole(RoleAdmin))
	assert.False(t, s.HasAnyRole(RoleClient, RoleNutritionist))
}

func TestRoleProfileDisabled(t *testing.T) {
	var p RoleProfile
	require.NoError(t, json.Unmarshal([]byte(`{"dni":"1"}`), &p))
	assert.False(t, p.Disabled(), "missing active flag does not disable")

	require.NoError(t, json.Unmarshal([]byte(`{"dni":"1","active":false}`), &p))
	assert.True(t, p.Disabled())

	require.NoError(t, json.Unmarshal([]byte(`{"dni":"1","active":true}`), &p))
	assert.False(t, p.Disabled())
}

func TestSessionJSONShape(t *testing.T) {
	active := true
	s := Session{
		Token:       "abc",
		Roles:       []Role{RoleTrainer},
		ID:          1,
		Username:    "jdoe",
		DNI:         "1234",
		GymName:     "Gym1",
		TrainerData: &TrainerData{RoleProfile: RoleProfile{DNI: "1234", Active: &active}},
	}
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "Gym1", m["gymName"])
	assert.Equal(t, []any{"ROLE_TRAINER"}, m["roles"])
	trainer := m["trainerData"].(map[string]any)
	assert.Equal(t, true, trainer["active"])
	assert.NotContains(t, m, "clientData")
}

func TestSessionPublicDropsToken(t *testing.T) {
	s := &Session{Token: "abc", Roles: []Role{RoleClient}, Username: "jdoe"}

	pub := s.Public()
	raw, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token")
	assert.Equal(t, "abc", s.Token, "original untouched")
	assert.Nil(t, (*Session)(nil).Public())
}

func TestSortByPrecedence(t *testing.T) {
	got := SortByPrecedence([]Role{RoleAdmin, RoleTrainer, Role("ROLE_X"), RoleClient, RoleAdmin})
	assert.Equal(t, []Role{RoleClient, RoleTrainer, RoleAdmin}, got)
	assert.Empty(t, SortByPrecedence(nil))
}
