package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// RequireCapability rejects callers whose role lacks the capability.
func RequireCapability(gate *Gate, capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := gate.Authorize(UserFromContext(c), capability); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal has been loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}
