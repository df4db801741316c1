package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/poll-service/internal/api/dto"
	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/service"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// AuthHandler exposes account endpoints for the signed-in user.
type AuthHandler struct {
	auth  *service.AuthService
	polls *service.PollService
	stats *service.StatsService
	gate  *auth.Gate
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, polls *service.PollService, stats *service.StatsService, gate *auth.Gate) *AuthHandler {
	return &AuthHandler{auth: authService, polls: polls, stats: stats, gate: gate}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(sessionResponse(session))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse(session))
}

// Demo handles POST /auth/demo.
func (h *AuthHandler) Demo(c *fiber.Ctx) error {
	var req dto.DemoLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.auth.DemoLogin(c.UserContext(), req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(sessionResponse(session))
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	caps := h.gate.Capabilities(user.Role)
	names := make([]string, len(caps))
	for i, capability := range caps {
		names[i] = string(capability)
	}
	return c.JSON(dto.MeResponse{User: userResponse(user), Capabilities: names})
}

// MyPolls handles GET /me/polls.
func (h *AuthHandler) MyPolls(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	polls, err := h.polls.ListPollsByCreator(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.PollListResponse{Polls: pollList(polls, h.polls.Summarize, false)})
}

// MyStats handles GET /me/stats.
func (h *AuthHandler) MyStats(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	stats, err := h.stats.UserStats(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(userStatsResponse(stats))
}

// ChangePassword handles POST /me/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), auth.UserFromContext(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
