// Package access holds the role model and the pure access decisions made on
// top of a resolved session: where a user lands after signing in, which
// guarded pages they may open, and which paths are public.
package access

import "strings"

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)

// Roles lists every selectable role.
var Roles = []Role{RoleGuest, RoleHost}

// ParseRole accepts only the exact lower-case role names.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleGuest, RoleHost:
		return Role(s), true
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string {
	return string(r)
}

// Status is the resolution state of a request's session.
type Status int

const (
	// Unresolved means no session check has completed for the request yet.
	Unresolved Status = iota
	Anonymous
	Identified
)

func (s Status) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Identified:
		return "identified"
	default:
		return "unresolved"
	}
}

// Viewer is the slice of a session that access decisions look at.
type Viewer struct {
	Status               Status
	Role                 Role
	RoleSelectionPending bool
}

func (v Viewer) Is(role Role) bool {
	return v.Status == Identified && v.Role == role
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
