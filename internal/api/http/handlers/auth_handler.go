package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// AdminAuthenticator issues admin API tokens.
type AdminAuthenticator interface {
	LoginAdmin(ctx context.Context, username, password string) (string, time.Time, error)
}

// AuthHandler serves the admin login endpoint.
type AuthHandler struct {
	auth AdminAuthenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth AdminAuthenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login POST /auth/admin/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}
	token, expiresAt, err := h.auth.LoginAdmin(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: expiresAt})
}
