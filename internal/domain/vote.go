package domain

import "time"

// VoteRecord is the immutable proof that a user voted on a poll.
type VoteRecord struct {
	UserID    string
	PollID    string
	OptionID  string
	CreatedAt time.Time
}
