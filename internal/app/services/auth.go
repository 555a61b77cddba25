package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"coolwatch-server-go/internal/domain/auth"
	"coolwatch-server-go/internal/domain/auth/store"
	"coolwatch-server-go/internal/models"
	"coolwatch-server-go/internal/platform/errors"
	"coolwatch-server-go/internal/platform/logging"
	"coolwatch-server-go/internal/platform/storage"
)

// AuthService implements login, token refresh and credential management.
type AuthService struct {
	users      *storage.UserRepository
	tokens     *auth.TokenManager
	refresh    store.TokenStore
	refreshTTL time.Duration
	activity   *ActivityService
	notifier   *NotificationService
	logger     *logging.Logger
}

// AuthServiceConfig carries the service dependencies.
type AuthServiceConfig struct {
	Users      *storage.UserRepository
	Tokens     *auth.TokenManager
	Refresh    store.TokenStore
	RefreshTTL time.Duration
	Activity   *ActivityService
	Notifier   *NotificationService
	Logger     *logging.Logger
}

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	return &AuthService{
		users:      cfg.Users,
		tokens:     cfg.Tokens,
		refresh:    cfg.Refresh,
		refreshTTL: cfg.RefreshTTL,
		activity:   cfg.Activity,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
	}
}

// LoginResult is the token pair handed to an authenticated client.
type LoginResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Login verifies the credentials and issues a token pair. Every failed
// attempt lands in the security audit trail with the origin address; the
// caller only ever sees a generic rejection.
func (s *AuthService) Login(ctx context.Context, username, password, origin string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user == nil || !user.IsActive || !auth.VerifyPassword(user.Password, password) {
		s.activity.RecordSecurityEvent(ctx, "LOGIN_FAILED", origin, map[string]interface{}{
			"username": username,
		})
		return nil, errors.New(errors.KindAuth, "auth.login", "invalid credentials")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil && s.logger != nil {
		s.logger.WarnTag("Auth", "last login update failed for %s: %v", user.Username, err)
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	_, _ = s.activity.Record(ctx, ActivityEntry{
		UserID:  &user.ID,
		Action:  "LOGIN",
		Type:    models.ActivityUser,
		Details: map[string]interface{}{"origin": origin},
	})
	return result, nil
}

// Refresh rotates a refresh token into a fresh token pair. The presented
// token is revoked whether or not rotation succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	stored, err := s.refresh.Get(ctx, refreshToken)
	if err == store.ErrTokenNotFound {
		return nil, errors.New(errors.KindAuth, "auth.refresh", "invalid refresh token")
	}
	if err != nil {
		return nil, err
	}

	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, errors.New(errors.KindAuth, "auth.refresh", "user no longer active")
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token.
func (s *AuthService) Logout(ctx context.Context, userID uint, refreshToken string) error {
	if refreshToken != "" {
		if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
			return err
		}
	}
	_, _ = s.activity.Record(ctx, ActivityEntry{
		UserID: &userID,
		Action: "LOGOUT",
		Type:   models.ActivityUser,
	})
	return nil
}

// ChangePassword swaps the user's password and revokes every outstanding
// refresh token so stolen sessions die with the old credential.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New(errors.KindDomain, "auth.change_password", "password must be at least 6 characters")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New(errors.KindAuth, "auth.change_password", "user not found")
	}
	if !auth.VerifyPassword(user.Password, currentPassword) {
		return errors.New(errors.KindAuth, "auth.change_password", "current password is incorrect")
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	if err := s.refresh.RevokeUser(ctx, user.ID); err != nil && s.logger != nil {
		s.logger.WarnTag("Auth", "refresh revocation failed for user %d: %v", user.ID, err)
	}

	s.notifier.NotifyUser(user.ID, "Your password was changed", "security")
	_, _ = s.activity.Record(ctx, ActivityEntry{
		UserID: &user.ID,
		Action: "PASSWORD_CHANGED",
		Type:   models.ActivityUser,
	})
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*LoginResult, error) {
	access, err := s.tokens.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	now := time.Now()
	if err := s.refresh.Save(ctx, store.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}

	return &LoginResult{User: user, AccessToken: access, RefreshToken: refreshToken}, nil
}
