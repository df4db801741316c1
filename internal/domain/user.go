package domain

import "time"

// User is a registered participant, administrator or owner.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsDemo reports whether the user signed in through a demo role.
func (u *User) IsDemo() bool {
	return u != nil && u.Role.IsDemo()
}

// UserStats aggregates a user's activity.
type UserStats struct {
	VotesCast          int64
	PollsCreated       int64
	ActivePollsCreated int64
}

// PlatformStats aggregates platform-wide counters.
type PlatformStats struct {
	Users       int64
	DemoUsers   int64
	Polls       int64
	ActivePolls int64
	Votes       int64
}
