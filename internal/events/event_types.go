package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/poll-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPollCreated     EventType = "poll_created"
	EventVoteCast        EventType = "vote_cast"
	EventPollClosed      EventType = "poll_closed"
	EventPollReopened    EventType = "poll_reopened"
	EventVotesPurged     EventType = "votes_purged"
	EventTalliesReset    EventType = "tallies_reset"
	EventUserRemoved     EventType = "user_removed"
	EventRoleChanged     EventType = "role_changed"
	EventSettingsUpdated EventType = "settings_updated"
)

// AllEventTypes lists every type a subscriber may register for.
var AllEventTypes = []EventType{
	EventPollCreated,
	EventVoteCast,
	EventPollClosed,
	EventPollReopened,
	EventVotesPurged,
	EventTalliesReset,
	EventUserRemoved,
	EventRoleChanged,
	EventSettingsUpdated,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// ActorOf describes user as an event actor. A nil user yields the system actor.
func ActorOf(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	id := user.ID
	return Actor{UserID: &id, Role: user.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	PollID    string      `json:"poll_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with an identifier and the current time.
func New(eventType EventType, pollID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		PollID:    pollID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PollCreatedPayload payload.
type PollCreatedPayload struct {
	Title       string `json:"title"`
	OptionCount int    `json:"option_count"`
	EndDate     string `json:"end_date"`
	CreatorName string `json:"creator_name,omitempty"`
}

// VoteCastPayload payload. Voter identity is carried by the actor only.
type VoteCastPayload struct {
	OptionID   string `json:"option_id"`
	TotalVotes int64  `json:"total_votes"`
}

// PollLifecyclePayload payload for close and reopen.
type PollLifecyclePayload struct {
	Title   string `json:"title"`
	EndDate string `json:"end_date"`
}

// VotesPurgedPayload payload.
type VotesPurgedPayload struct {
	Removed int64 `json:"removed"`
}

// TalliesResetPayload payload.
type TalliesResetPayload struct {
	PreviousTotal int64 `json:"previous_total"`
}

// UserRemovedPayload payload.
type UserRemovedPayload struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	UserID  string      `json:"user_id"`
	Email   string      `json:"email"`
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}

// SettingsUpdatedPayload payload.
type SettingsUpdatedPayload struct {
	PublicRegistration bool `json:"public_registration"`
	EmailNotifications bool `json:"email_notifications"`
	AnonymousVoting    bool `json:"anonymous_voting"`
}
