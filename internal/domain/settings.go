package domain

import "time"

// Settings holds the platform switches managed from the owner panel.
type Settings struct {
	PublicRegistration bool
	EmailNotifications bool
	AnonymousVoting    bool
	UpdatedAt          time.Time
	UpdatedBy          *string
}

// DefaultSettings returns the settings used before any change was saved.
func DefaultSettings() Settings {
	return Settings{
		PublicRegistration: true,
		EmailNotifications: true,
		AnonymousVoting:    false,
	}
}
