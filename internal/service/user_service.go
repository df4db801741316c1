package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/repository"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// UserService handles user administration.
type UserService struct {
	users  repository.UserRepository
	stats  *StatsService
	gate   *auth.Gate
	logger *zap.Logger
	events publisher
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Stats      *StatsService
	Gate       *auth.Gate
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// UserWithStats pairs an account with its activity counters.
type UserWithStats struct {
	User  domain.User
	Stats domain.UserStats
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gate := deps.Gate
	if gate == nil {
		gate = auth.NewGate()
	}
	return &UserService{
		users:  deps.UserRepo,
		stats:  deps.Stats,
		gate:   gate,
		logger: logger,
		events: publisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// ListUsers returns every account with its stats.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User) ([]UserWithStats, error) {
	if err := s.gate.Authorize(actor, auth.CapManageUsers); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]UserWithStats, 0, len(users))
	for _, u := range users {
		stats, err := s.stats.UserStats(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, UserWithStats{User: u, Stats: stats})
	}
	return result, nil
}

// RemoveUser deletes an account. The owner cannot be removed, removing an
// admin is owner-exclusive, and the user's polls and votes are kept.
func (s *UserService) RemoveUser(ctx context.Context, actor *domain.User, targetID string) error {
	if err := s.gate.Authorize(actor, auth.CapManageUsers); err != nil {
		return err
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	switch {
	case target.ID == actor.ID:
		return apperrors.NewConflict("you cannot remove your own account", map[string]any{"userId": targetID})
	case target.Role == domain.RoleOwner:
		return apperrors.NewForbidden("the owner cannot be removed")
	case target.Role == domain.RoleAdmin:
		if err := s.gate.Authorize(actor, auth.CapRemovePrivilegedUsers); err != nil {
			return err
		}
	}

	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}
	s.logger.Info("user removed",
		zap.String("user_id", target.ID),
		zap.String("role", string(target.Role)),
		zap.String("actor_id", actor.ID))
	s.events.publish(ctx, events.New(events.EventUserRemoved, "", events.ActorOf(actor), events.UserRemovedPayload{
		UserID: target.ID,
		Email:  target.Email,
		Role:   target.Role,
	}))
	return nil
}

// ChangeRole reassigns a user's role. Only the owner may do it, the owner role
// itself cannot be granted and demo roles are reserved for demo login.
func (s *UserService) ChangeRole(ctx context.Context, actor *domain.User, targetID, rawRole string) (*domain.User, error) {
	if err := s.gate.Authorize(actor, auth.CapAssignRoles); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "role"})
	}
	if role == domain.RoleOwner {
		return nil, apperrors.NewForbidden("the owner role cannot be assigned")
	}
	if role.IsDemo() {
		return nil, apperrors.NewValidationError("demo roles cannot be assigned", map[string]any{"field": "role"})
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == domain.RoleOwner {
		return nil, apperrors.NewForbidden("the owner role cannot be changed")
	}
	if target.IsDemo() {
		return nil, apperrors.NewConflict("demo accounts keep their role", map[string]any{"userId": targetID})
	}
	if target.Role == role {
		return target, nil
	}

	oldRole := target.Role
	target.Role = role
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}
	s.logger.Info("role changed",
		zap.String("user_id", target.ID),
		zap.String("old_role", string(oldRole)),
		zap.String("new_role", string(role)))
	s.events.publish(ctx, events.New(events.EventRoleChanged, "", events.ActorOf(actor), events.RoleChangedPayload{
		UserID:  target.ID,
		Email:   target.Email,
		OldRole: oldRole,
		NewRole: role,
	}))
	return target, nil
}
