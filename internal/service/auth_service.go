package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// adminSubjectID is the only subject the admin API issues tokens for.
const adminSubjectID = "admin"

// AuthService issues admin API tokens.
type AuthService struct {
	tokenMgr     *auth.TokenManager
	passwordHash string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config) *AuthService {
	return &AuthService{
		tokenMgr:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.App.Name),
		passwordHash: cfg.Auth.AdminPasswordHash,
	}
}

// LoginAdmin checks the admin password against the configured bcrypt hash.
func (s *AuthService) LoginAdmin(_ context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperrors.NewPreconditionFailed("admin login is disabled", nil)
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(adminSubjectID)) != 1 {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.IssueToken(adminSubjectID, domain.SubjectTypeAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
