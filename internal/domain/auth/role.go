// internal/domain/auth/role.go
package auth

import "strings"

// Role is one of the fixed role claims issued by the FitPower backend.
type Role string

const (
	RoleAdmin        Role = "ROLE_ADMIN"
	RoleTrainer      Role = "ROLE_TRAINER"
	RoleNutritionist Role = "ROLE_NUTRITIONIST"
	RoleClient       Role = "ROLE_CLIENT"
)

// Landing routes per role.
const (
	PathHome                  = "/"
	PathAdminDashboard        = "/admin/dashboard"
	PathTrainerDashboard      = "/trainer/dashboard"
	PathNutritionistDashboard = "/nutritionist/dashboard"
	PathClientDashboard       = "/client"
)

// landingPrecedence is the single order used to pick a landing route for a
// user holding several roles. Login redirects and the route guard share it.
var landingPrecedence = []Role{RoleNutritionist, RoleClient, RoleTrainer, RoleAdmin}

// ParseRole recognizes exactly the four backend role names.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleTrainer, RoleNutritionist, RoleClient:
		return r, true
	default:
		return "", false
	}
}

// ParseRoles keeps recognized roles in their original order and drops the rest.
func ParseRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		if r, ok := ParseRole(s); ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// JoinRoles encodes roles for the flat `role` storage entry.
func JoinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// SplitRoles is the inverse of JoinRoles. Unknown names are dropped.
func SplitRoles(s string) []Role {
	if s == "" {
		return nil
	}
	return ParseRoles(strings.Split(s, ","))
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// LandingPath returns the dashboard route owned by the role.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return PathAdminDashboard
	case RoleTrainer:
		return PathTrainerDashboard
	case RoleNutritionist:
		return PathNutritionistDashboard
	case RoleClient:
		return PathClientDashboard
	default:
		return PathHome
	}
}

// ProfileResource is the backend collection holding the role's profile
// record. Admins have none.
func (r Role) ProfileResource() (string, bool) {
	switch r {
	case RoleTrainer:
		return "trainers", true
	case RoleNutritionist:
		return "nutritionists", true
	case RoleClient:
		return "clients", true
	default:
		return "", false
	}
}

// RedirectPath picks the landing route for a set of roles using the fixed
// precedence nutritionist, client, trainer, admin. The order the backend
// returned the roles in does not matter.
func RedirectPath(roles []Role) string {
	for _, candidate := range landingPrecedence {
		for _, r := range roles {
			if r == candidate {
				return candidate.LandingPath()
			}
		}
	}
	return PathHome
}

// SortByPrecedence returns the recognized roles of roles, deduplicated, in
// landing precedence order.
func SortByPrecedence(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, candidate := range landingPrecedence {
		if ContainsAny(roles, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// ContainsAny reports whether any of want appears in have.
func ContainsAny(have []Role, want ...Role) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
