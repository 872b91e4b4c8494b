// internal/domain/auth/entity.go
package auth

import "time"

// Session is the authenticated user as held in the token store. It is
// serialized whole under the `user` key.
type Session struct {
	Token    string `json:"token,omitempty"`
	Roles    []Role `json:"roles"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	DNI      string `json:"dni"`
	GymName  string `json:"gymName"`

	TrainerData      *TrainerData      `json:"trainerData,omitempty"`
	NutritionistData *NutritionistData `json:"nutritionistData,omitempty"`
	ClientData       *ClientData       `json:"clientData,omitempty"`
}

// Public returns a copy safe to hand to the browser: the access token never
// leaves the gateway.
func (s *Session) Public() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Token = ""
	return &cp
}

// PrimaryRole is the first recognized role, or "" when there is none.
func (s *Session) PrimaryRole() Role {
	for _, r := range s.Roles {
		if r.Valid() {
			return r
		}
	}
	return ""
}

func (s *Session) HasRole(role Role) bool {
	return ContainsAny(s.Roles, role)
}

func (s *Session) HasAnyRole(roles ...Role) bool {
	return ContainsAny(s.Roles, roles...)
}

// Complete reports whether the session carries a token and at least one
// recognized role.
func (s *Session) Complete() bool {
	return s != nil && s.Token != "" && s.PrimaryRole() != ""
}

// RoleProfile holds the fields shared by every role-specific record.
type RoleProfile struct {
	ID       int64  `json:"id,omitempty"`
	DNI      string `json:"dni,omitempty"`
	Name     string `json:"name,omitempty"`
	LastName string `json:"lastName,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// Disabled is true only when the backend explicitly sent active=false.
func (p *RoleProfile) Disabled() bool {
	return p != nil && p.Active != nil && !*p.Active
}

type TrainerData struct {
	RoleProfile
	Specialty string `json:"specialty,omitempty"`
}

type NutritionistData struct {
	RoleProfile
	Specialty string `json:"specialty,omitempty"`
}

type ClientData struct {
	RoleProfile
	TrainerDNI      string `json:"trainerDni,omitempty"`
	NutritionistDNI string `json:"nutritionistDni,omitempty"`
}

// LoginOutcome classifies a login attempt for the audit trail.
type LoginOutcome string

const (
	OutcomeSuccess     LoginOutcome = "success"
	OutcomeRejected    LoginOutcome = "rejected"
	OutcomeDisabled    LoginOutcome = "disabled"
	OutcomeThrottled   LoginOutcome = "throttled"
	OutcomeUnavailable LoginOutcome = "unavailable"
)

// LoginEvent is one row of the login audit trail.
type LoginEvent struct {
	ID         int64        `json:"id" db:"id"`
	SessionID  string       `json:"session_id" db:"session_id"`
	Username   string       `json:"username" db:"username"`
	Role       string       `json:"role" db:"role"`
	Outcome    LoginOutcome `json:"outcome" db:"outcome"`
	Message    string       `json:"message" db:"message"`
	IPAddress  string       `json:"ip_address" db:"ip_address"`
	UserAgent  string       `json:"user_agent" db:"user_agent"`
	OccurredAt time.Time    `json:"occurred_at" db:"occurred_at"`
}
