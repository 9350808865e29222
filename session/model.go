package session

import (
	"slices"
	"time"
)

// Role is the user type a session was issued for.
type Role string

const (
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
)

// Roles lists every role that may own a Namespaced Session.
var Roles = []Role{RoleMember, RoleAdmin, RoleTrainer}

// ParseRole returns the Role named by s.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string {
	return string(r)
}

// Area is the coarse navigation area a route belongs to. The routing layer
// computes it once per navigation and hands it to session validation.
type Area uint8

const (
	AreaNone Area = iota
	AreaMember
	AreaAdmin
	AreaTrainer
)

// Role returns the role implied by the area, if any.
func (a Area) Role() (Role, bool) {
	switch a {
	case AreaMember:
		return RoleMember, true
	case AreaAdmin:
		return RoleAdmin, true
	case AreaTrainer:
		return RoleTrainer, true
	default:
		return "", false
	}
}

func (a Area) String() string {
	if r, ok := a.Role(); ok {
		return string(r)
	}
	return "none"
}

// AreaFor returns the navigation area owned by role.
func AreaFor(r Role) Area {
	switch r {
	case RoleMember:
		return AreaMember
	case RoleAdmin:
		return AreaAdmin
	case RoleTrainer:
		return AreaTrainer
	default:
		return AreaNone
	}
}

// Record is a normalized session produced by a successful login.
//
// Records are immutable once created; WithTokens and WithUserType return
// updated copies.
type Record struct {
	Token        string
	RefreshToken string
	UserType     Role
	UserRoles    []string
	UserID       string
	MemberID     string
	Name         string
	Username     string

	LoginTimestamp time.Time
	// SessionStart is populated on reads from the store. It is written once,
	// when the record is first saved, and equals LoginTimestamp.
	SessionStart time.Time
}

// HasRole reports whether role is one of the record's granted roles.
func (r *Record) HasRole(role string) bool {
	if r == nil {
		return false
	}
	return slices.Contains(r.UserRoles, role)
}

// WithTokens returns a copy of r carrying a new token pair. An empty
// refreshToken keeps the current one.
func (r *Record) WithTokens(token, refreshToken string) *Record {
	out := r.clone()
	out.Token = token
	if refreshToken != "" {
		out.RefreshToken = refreshToken
	}
	return out
}

// WithUserType returns a copy of r with a different active user type.
func (r *Record) WithUserType(role Role) *Record {
	out := r.clone()
	out.UserType = role
	return out
}

func (r *Record) clone() *Record {
	out := *r
	out.UserRoles = slices.Clone(r.UserRoles)
	return &out
}

// NormalizeRoles sorts and de-duplicates a role list, dropping empty entries.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if role != "" {
			out = append(out, role)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Credentials is the token pair used to authorize one outbound request.
type Credentials struct {
	Role         Role
	Token        string
	RefreshToken string
}
