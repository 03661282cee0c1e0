package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akulikov/webshop/internal/logging"
	"github.com/akulikov/webshop/internal/service"
	"github.com/akulikov/webshop/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		he := domainError(err)
		l.Warn("register_error", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		he := domainError(err)
		l.Warn("login_error", "status", he.Code)
		return he
	}

	return c.JSON(http.StatusOK, transport.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh surfaces every token failure as a 400, per the API contract: a bad
// refresh token is a malformed request, not a failed login.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			l.Warn("refresh_error", "status", 400)
			return echo.NewHTTPError(http.StatusBadRequest, reason(err, service.ErrUnauthorized))
		}
		he := domainError(err)
		l.Warn("refresh_error", "status", he.Code, "error", err)
		return he
	}

	return c.JSON(http.StatusCreated, transport.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	if err := h.Svc.Logout(ctx, userID); err != nil {
		return domainError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		he := domainError(err)
		l.Warn("change_password_error", "status", he.Code)
		return he
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// ResetPassword is two-phase: without ?resetKey= the body must carry an email
// and a reset key is created and mailed; with it, the body must carry the new
// password.
func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.reset_password")

	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	resetKey := c.QueryParam("resetKey")

	var err error
	if resetKey == "" {
		err = h.Svc.RequestPasswordReset(ctx, req.Email)
	} else {
		err = h.Svc.ResetPassword(ctx, resetKey, req.NewPassword)
	}
	if err != nil {
		he := domainError(err)
		l.Warn("reset_password_error", "status", he.Code)
		return he
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
