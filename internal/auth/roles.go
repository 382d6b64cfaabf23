package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// RequireAdmin ensures the caller holds an admin token.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.SubjectTypeAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
