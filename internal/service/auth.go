package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/akulikov/webshop/internal/emails"
	"github.com/akulikov/webshop/internal/hash"
	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/models"
	"github.com/akulikov/webshop/internal/repo"
	"github.com/akulikov/webshop/pkg/tokens"
)

const resetKeyTTL = 24 * time.Hour

type AuthService struct {
	Repo          *repo.GormRepo
	Emails        *emails.Service
	JWTSecret     []byte
	RefreshSecret []byte
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleClient,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: email already used", ErrConflict)
		}
		return nil, err
	}

	l.Info("register_success", "user_id", user.ID)
	return &user, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email and
// wrong password produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		l.Error("login_error", "error", err)
		return nil, err
	}

	l.Info("login_success", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The old ledger entry is
// denylisted and a new one is written (rotation). Cryptographic failures and
// deliberate revocation stay distinguishable in the error message.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: the supplied refresh token is not valid", ErrUnauthorized)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: the supplied refresh token is not valid", ErrUnauthorized)
	}

	if _, err := s.Repo.FindActiveToken(ctx, claims.ID); err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: the supplied token is valid but has been marked as denylisted", ErrUnauthorized)
		}
		return nil, err
	}

	// Role is resolved fresh from the user row, never trusted from a stale claim.
	user, err := s.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("%w: the supplied refresh token is not valid", ErrUnauthorized)
		}
		return nil, err
	}

	if err := s.Repo.DenylistToken(ctx, claims.ID); err != nil {
		return nil, err
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		l.Error("refresh_error", "error", err)
		return nil, err
	}

	l.Info("refresh_success", "user_id", user.ID)
	return pair, nil
}

// Logout denylists every outstanding token of the user. Idempotent.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	count, err := s.Repo.DenylistTokensForUser(ctx, userID)
	if err != nil {
		return err
	}

	l.Info("logout_success", "user_id", userID, "denylisted", count)
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password")

	if newPassword == "" {
		return fmt.Errorf("%w: missing new password in the body parameters", ErrValidation)
	}

	user, err := s.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return err
	}

	if !hash.CheckPassword(user.PasswordHash, currentPassword) {
		return fmt.Errorf("%w: the supplied password doesn't match the current password", ErrValidation)
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdateUserPassword(ctx, userID, pwHash); err != nil {
		return err
	}

	// Force re-login everywhere.
	if err := s.Logout(ctx, userID); err != nil {
		return err
	}

	l.Info("change_password_success", "user_id", userID)
	return nil
}

// RequestPasswordReset is phase one of the reset flow: create (or reuse) a
// reset key for the account and queue the email carrying it.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	if email == "" {
		return fmt.Errorf("%w: missing email in the body parameters", ErrValidation)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("%w: the supplied email address was not found", ErrValidation)
		}
		return err
	}

	existing, err := s.Repo.FindResetTokenByUser(ctx, user.ID)
	switch {
	case err == nil && time.Now().Before(existing.ExpiresAt):
		l.Info("reset_key_reused", "user_id", user.ID)
		s.Emails.SendPasswordResetEmail(ctx, user.Email, existing.ResetKey)
		return nil
	case err == nil:
		// The outstanding key already expired and can never be redeemed;
		// rotate it instead of resending a dead key.
		if err := s.Repo.DeleteResetToken(ctx, existing.ID); err != nil {
			return err
		}
		l.Info("reset_key_rotated", "user_id", user.ID)
	case !repo.IsNotFound(err):
		return err
	}

	resetKey, err := newResetKey()
	if err != nil {
		return err
	}
	token := models.ResetToken{
		UserID:    user.ID,
		ResetKey:  resetKey,
		ExpiresAt: time.Now().Add(resetKeyTTL),
	}
	if err := s.Repo.CreateResetToken(ctx, &token); err != nil {
		return err
	}

	l.Info("reset_key_created", "user_id", user.ID)
	s.Emails.SendPasswordResetEmail(ctx, user.Email, resetKey)
	return nil
}

// ResetPassword is phase two: resolve the key, store the new hash, consume the
// key and queue the changed-password notification.
func (s *AuthService) ResetPassword(ctx context.Context, resetKey, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	if newPassword == "" {
		return fmt.Errorf("%w: missing new password in the body parameters", ErrValidation)
	}

	token, err := s.Repo.FindResetTokenByKey(ctx, resetKey)
	if err != nil {
		if repo.IsNotFound(err) {
			return fmt.Errorf("%w: the supplied reset key is not valid", ErrValidation)
		}
		return err
	}
	if time.Now().After(token.ExpiresAt) {
		return fmt.Errorf("%w: the supplied reset key is not valid", ErrValidation)
	}

	user, err := s.Repo.FindUserByID(ctx, token.UserID)
	if err != nil {
		return err
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdateUserPassword(ctx, user.ID, pwHash); err != nil {
		return err
	}
	if err := s.Repo.DeleteResetToken(ctx, token.ID); err != nil {
		return err
	}

	l.Info("reset_password_success", "user_id", user.ID)
	s.Emails.SendChangedPasswordEmail(ctx, user.Email)
	return nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	accessToken, _, err := tokens.SignAccessToken(user.ID, user.Role, s.JWTSecret)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, refreshExp, err := tokens.SignRefreshToken(user.ID, s.RefreshSecret)
	if err != nil {
		return nil, err
	}

	ledger := models.OutstandingToken{
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.CreateOutstandingToken(ctx, &ledger); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func newResetKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
