package domain

import (
	"fmt"
	"strings"
)

// Role is the flat authorization level resolved at login.
type Role string

const (
	RoleOwner           Role = "owner"
	RoleAdmin           Role = "admin"
	RoleModerator       Role = "moderator"
	RoleParticipant     Role = "participant"
	RoleDemoOwner       Role = "demo-owner"
	RoleDemoAdmin       Role = "demo-admin"
	RoleDemoParticipant Role = "demo-participant"
)

// DemoPrefix marks restricted demo variants of a base role.
const DemoPrefix = "demo-"

var knownRoles = map[Role]struct{}{
	RoleOwner:           {},
	RoleAdmin:           {},
	RoleModerator:       {},
	RoleParticipant:     {},
	RoleDemoOwner:       {},
	RoleDemoAdmin:       {},
	RoleDemoParticipant: {},
}

// ParseRole validates a role name. "demo-user" is accepted for demo-participant.
func ParseRole(raw string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "demo-user" {
		return RoleDemoParticipant, nil
	}
	role := Role(normalized)
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// IsDemo reports whether the role is a demo variant.
func (r Role) IsDemo() bool {
	return strings.HasPrefix(string(r), DemoPrefix)
}

// Base strips the demo prefix.
func (r Role) Base() Role {
	return Role(strings.TrimPrefix(string(r), DemoPrefix))
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}
