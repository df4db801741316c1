package dto

import "time"

// SettingsResponse exposes the platform switches.
type SettingsResponse struct {
	PublicRegistration bool       `json:"publicRegistration"`
	EmailNotifications bool       `json:"emailNotifications"`
	AnonymousVoting    bool       `json:"anonymousVoting"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy          *string    `json:"updatedBy,omitempty"`
}

// SettingsUpdateRequest changes only the switches that are present.
type SettingsUpdateRequest struct {
	PublicRegistration *bool `json:"publicRegistration"`
	EmailNotifications *bool `json:"emailNotifications"`
	AnonymousVoting    *bool `json:"anonymousVoting"`
}

// PlatformStatsResponse holds platform counters.
type PlatformStatsResponse struct {
	Users       int64 `json:"users"`
	DemoUsers   int64 `json:"demoUsers"`
	Polls       int64 `json:"polls"`
	ActivePolls int64 `json:"activePolls"`
	Votes       int64 `json:"votes"`
}
