package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/config"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/repository"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

const (
	minPasswordLength = 6
	demoEmailDomain   = "demo.local"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	settings   repository.SettingsRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	SettingsRepo repository.SettingsRepository
	Logger       *zap.Logger
}

// Session is an authenticated user with its access token.
type Session struct {
	User  *domain.User
	Token domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		settings:   deps.SettingsRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// Register creates a participant account while public registration is open.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.PublicRegistration {
		return nil, apperrors.NewForbidden("registration is closed")
	}

	name = strings.TrimSpace(name)
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
			map[string]any{"field": "password"})
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleParticipant,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.session(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	return s.session(user)
}

// DemoLogin creates a throwaway demo account. Base role names map to their
// demo variant so a demo login never yields a real privileged role.
func (s *AuthService) DemoLogin(ctx context.Context, rawRole string) (*Session, error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "role"})
	}
	if !role.IsDemo() {
		role = domain.Role(domain.DemoPrefix + string(role.Base()))
		if !role.Valid() {
			return nil, apperrors.NewValidationError("no demo variant for role", map[string]any{"role": rawRole})
		}
	}

	id := uuid.NewString()
	user := &domain.User{
		ID:    id,
		Name:  demoName(role),
		Email: fmt.Sprintf("%s+%s@%s", role, id[:8], demoEmailDomain),
		Role:  role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("demo login", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return s.session(user)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error {
	if user == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if user.IsDemo() {
		return apperrors.NewForbidden("demo accounts have no password")
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minPasswordLength),
			map[string]any{"field": "newPassword"})
	}
	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(stored.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthenticated("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	stored.PasswordHash = hash
	return s.users.Update(ctx, stored)
}

// SeedOwner makes sure the configured owner account exists with the owner role.
func (s *AuthService) SeedOwner(ctx context.Context, name, email, password string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleOwner {
			return existing, nil
		}
		existing.Role = domain.RoleOwner
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("owner role restored", zap.String("user_id", existing.ID))
		return existing, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	if password == "" {
		return nil, apperrors.NewValidationError("owner password is required", map[string]any{"field": "AUTH_OWNER_PASSWORD"})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Owner"
	}
	owner := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleOwner,
	}
	if err := s.users.Create(ctx, owner); err != nil {
		return nil, err
	}
	s.logger.Info("owner account seeded", zap.String("user_id", owner.ID))
	return owner, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) session(user *domain.User) (*Session, error) {
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", apperrors.NewValidationError("a valid email is required", map[string]any{"field": "email"})
	}
	return email, nil
}

func demoName(role domain.Role) string {
	switch role.Base() {
	case domain.RoleOwner:
		return "Demo Owner"
	case domain.RoleAdmin:
		return "Demo Admin"
	default:
		return "Demo User"
	}
}
