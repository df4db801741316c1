package dto

import "time"

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DemoLoginRequest payload for POST /auth/demo.
type DemoLoginRequest struct {
	Role string `json:"role"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangeRoleRequest payload for PUT /admin/users/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserResponse is the public account representation.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsDemo    bool      `json:"isDemo"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionResponse pairs the account with its token.
type SessionResponse struct {
	User UserResponse `json:"user"`
	Auth AuthResponse `json:"auth"`
}

// MeResponse is returned by GET /me.
type MeResponse struct {
	User         UserResponse `json:"user"`
	Capabilities []string     `json:"capabilities"`
}

// UserStatsResponse holds personal counters.
type UserStatsResponse struct {
	VotesCast          int64 `json:"votesCast"`
	PollsCreated       int64 `json:"pollsCreated"`
	ActivePollsCreated int64 `json:"activePollsCreated"`
}

// UserWithStatsResponse is one row of the admin user list.
type UserWithStatsResponse struct {
	UserResponse
	Stats UserStatsResponse `json:"stats"`
}
