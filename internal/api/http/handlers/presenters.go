package handlers

import (
	"github.com/spec-kit/poll-service/internal/api/dto"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/service"
)

func pollResponse(summary service.PollSummary, hideCreator bool) dto.PollResponse {
	options := make([]dto.OptionResponse, 0, len(summary.Tally))
	for _, entry := range summary.Tally {
		options = append(options, dto.OptionResponse{
			ID:         entry.OptionID,
			Text:       entry.Text,
			Votes:      entry.Votes,
			Percentage: entry.Percentage,
		})
	}
	resp := dto.PollResponse{
		ID:          summary.Poll.ID,
		Title:       summary.Poll.Title,
		Description: summary.Poll.Description,
		Options:     options,
		TotalVotes:  summary.Poll.TotalVotes(),
		Status:      string(summary.Status),
		IsActive:    summary.Active,
		EndDate:     summary.Poll.EndDate.Format(domain.DateLayout),
		CreatedAt:   summary.Poll.CreatedAt,
	}
	if !hideCreator {
		resp.CreatorName = summary.Poll.CreatorName
	}
	return resp
}

func pollList(polls []domain.Poll, summarize func(domain.Poll) service.PollSummary, hideCreator bool) []dto.PollResponse {
	items := make([]dto.PollResponse, 0, len(polls))
	for _, p := range polls {
		items = append(items, pollResponse(summarize(p), hideCreator))
	}
	return items
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		IsDemo:    u.IsDemo(),
		CreatedAt: u.CreatedAt,
	}
}

func sessionResponse(s *service.Session) dto.SessionResponse {
	return dto.SessionResponse{
		User: userResponse(s.User),
		Auth: dto.AuthResponse{Token: s.Token.Value, ExpiresAt: s.Token.ExpiresAt},
	}
}

func userStatsResponse(s domain.UserStats) dto.UserStatsResponse {
	return dto.UserStatsResponse{
		VotesCast:          s.VotesCast,
		PollsCreated:       s.PollsCreated,
		ActivePollsCreated: s.ActivePollsCreated,
	}
}

func settingsResponse(s domain.Settings) dto.SettingsResponse {
	resp := dto.SettingsResponse{
		PublicRegistration: s.PublicRegistration,
		EmailNotifications: s.EmailNotifications,
		AnonymousVoting:    s.AnonymousVoting,
		UpdatedBy:          s.UpdatedBy,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}
