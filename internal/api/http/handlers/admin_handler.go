package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/poll-service/internal/api/dto"
	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/observability"
	"github.com/spec-kit/poll-service/internal/service"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// AdminHandler serves the owner panel.
type AdminHandler struct {
	users    *service.UserService
	settings *service.SettingsService
	stats    *service.StatsService
	metrics  *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users *service.UserService, settings *service.SettingsService, stats *service.StatsService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{users: users, settings: settings, stats: stats, metrics: metrics}
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	items := make([]dto.UserWithStatsResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.UserWithStatsResponse{
			UserResponse: userResponse(&users[i].User),
			Stats:        userStatsResponse(users[i].Stats),
		})
	}
	return c.JSON(fiber.Map{"users": items})
}

// RemoveUser DELETE /admin/users/:id.
func (h *AdminHandler) RemoveUser(c *fiber.Ctx) error {
	if err := h.users.RemoveUser(c.UserContext(), auth.UserFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeRole PUT /admin/users/:id/role.
func (h *AdminHandler) ChangeRole(c *fiber.Ctx) error {
	var req dto.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.ChangeRole(c.UserContext(), auth.UserFromContext(c), c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// GetSettings GET /admin/settings.
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(settingsResponse(settings))
}

// UpdateSettings PUT /admin/settings.
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.SettingsUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.settings.Update(c.UserContext(), auth.UserFromContext(c), service.SettingsUpdate{
		PublicRegistration: req.PublicRegistration,
		EmailNotifications: req.EmailNotifications,
		AnonymousVoting:    req.AnonymousVoting,
	})
	if err != nil {
		return err
	}
	return c.JSON(settingsResponse(settings))
}

// PlatformStats GET /admin/stats.
func (h *AdminHandler) PlatformStats(c *fiber.Ctx) error {
	stats, err := h.stats.PlatformStats(c.UserContext(), auth.UserFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.PlatformStatsResponse{
		Users:       stats.Users,
		DemoUsers:   stats.DemoUsers,
		Polls:       stats.Polls,
		ActivePolls: stats.ActivePolls,
		Votes:       stats.Votes,
	})
}

// Metrics GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
