package auth

import (
	"fmt"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// Capability is a named permission granted to a role.
type Capability string

const (
	CapManageUsers     Capability = "manageUsers"
	CapManageSettings  Capability = "manageSettings"
	CapModerateAnyPoll Capability = "moderateAnyPoll"
	CapCreatePoll      Capability = "createPoll"
	CapVote            Capability = "vote"

	// Owner-exclusive capabilities.
	CapAssignRoles           Capability = "assignRoles"
	CapPurgeData             Capability = "purgeData"
	CapRemovePrivilegedUsers Capability = "removePrivilegedUsers"
	CapReopenPoll            Capability = "reopenPoll"
)

type capabilitySet map[Capability]struct{}

func newSet(caps ...Capability) capabilitySet {
	set := make(capabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (s capabilitySet) has(c Capability) bool {
	_, ok := s[c]
	return ok
}

var ownerExclusive = newSet(CapAssignRoles, CapPurgeData, CapRemovePrivilegedUsers, CapReopenPoll)

// roleCapabilities is the single source of truth for base roles. Demo variants
// resolve through their base role and are then restricted by demoDenied.
var roleCapabilities = map[domain.Role]capabilitySet{
	domain.RoleOwner: newSet(
		CapManageUsers, CapManageSettings, CapModerateAnyPoll, CapCreatePoll, CapVote,
		CapAssignRoles, CapPurgeData, CapRemovePrivilegedUsers, CapReopenPoll,
	),
	domain.RoleAdmin:       newSet(CapManageUsers, CapManageSettings, CapModerateAnyPoll, CapCreatePoll, CapVote),
	domain.RoleModerator:   newSet(CapModerateAnyPoll),
	domain.RoleParticipant: newSet(CapCreatePoll, CapVote),
}

var demoDenied = newSet(CapCreatePoll, CapManageUsers, CapManageSettings)

// Gate is the single chokepoint for role-based authorization.
type Gate struct{}

// NewGate constructs the gate.
func NewGate() *Gate {
	return &Gate{}
}

// Capabilities lists what the role may do after demo restrictions.
func (g *Gate) Capabilities(role domain.Role) []Capability {
	base, ok := roleCapabilities[role.Base()]
	if !ok {
		return nil
	}
	caps := make([]Capability, 0, len(base))
	for _, c := range orderedCapabilities {
		if !base.has(c) {
			continue
		}
		if g.allowed(role, c) {
			caps = append(caps, c)
		}
	}
	return caps
}

var orderedCapabilities = []Capability{
	CapManageUsers, CapManageSettings, CapModerateAnyPoll, CapCreatePoll, CapVote,
	CapAssignRoles, CapPurgeData, CapRemovePrivilegedUsers, CapReopenPoll,
}

// Can reports whether the role holds the capability.
func (g *Gate) Can(role domain.Role, capability Capability) bool {
	return g.allowed(role, capability)
}

// Authorize returns nil when user may exercise capability.
func (g *Gate) Authorize(user *domain.User, capability Capability) error {
	if user == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !g.allowed(user.Role, capability) {
		return apperrors.NewForbidden(fmt.Sprintf("role %s may not %s", user.Role, capability))
	}
	return nil
}

func (g *Gate) allowed(role domain.Role, capability Capability) bool {
	if ownerExclusive.has(capability) {
		return role == domain.RoleOwner
	}
	set, ok := roleCapabilities[role.Base()]
	if !ok || !set.has(capability) {
		return false
	}
	if role.IsDemo() && demoDenied.has(capability) {
		return false
	}
	return true
}
