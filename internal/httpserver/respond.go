package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/akulikov/webshop/internal/service"
)

// domainError translates service sentinels into HTTP errors. Raw storage or
// unexpected errors never reach the client body.
func domainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, reason(err, service.ErrValidation))
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, reason(err, service.ErrUnauthorized))
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, reason(err, service.ErrForbidden))
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, reason(err, service.ErrNotFound))
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, reason(err, service.ErrConflict))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func reason(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
