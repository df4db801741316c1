package dto

import "time"

// PollActionRequest is the POST /polls payload; Action selects create or vote.
type PollActionRequest struct {
	Action      string   `json:"action"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	EndDate     string   `json:"endDate"`
	PollID      string   `json:"pollId"`
	OptionID    string   `json:"optionId"`
	UserID      string   `json:"userId"`
}

// ReopenPollRequest payload.
type ReopenPollRequest struct {
	EndDate string `json:"endDate"`
}

// OptionResponse is one option with its share of the votes.
type OptionResponse struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Votes      int64  `json:"votes"`
	Percentage int64  `json:"percentage"`
}

// PollResponse is the public poll representation.
type PollResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Options     []OptionResponse `json:"options"`
	TotalVotes  int64            `json:"totalVotes"`
	Status      string           `json:"status"`
	IsActive    bool             `json:"isActive"`
	EndDate     string           `json:"endDate"`
	CreatorName string           `json:"creatorName,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// PollListResponse wraps GET /polls.
type PollListResponse struct {
	Polls []PollResponse `json:"polls"`
}

// PollCreatedResponse is returned by the create action.
type PollCreatedResponse struct {
	Success bool   `json:"success"`
	PollID  string `json:"pollId"`
}

// VoteResponse is returned by the vote action.
type VoteResponse struct {
	Success bool          `json:"success"`
	Poll    *PollResponse `json:"poll,omitempty"`
}

// PurgeVotesResponse reports how many ledger records were removed.
type PurgeVotesResponse struct {
	Success bool  `json:"success"`
	Removed int64 `json:"removed"`
}
