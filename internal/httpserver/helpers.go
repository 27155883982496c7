package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/service"
	authmw "github.com/Skotchmaster/teslix_shop/pkg/middleware/auth"
)

var errUnauthenticated = errors.New("unauthenticated")

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// actor builds the principal set by the auth middleware.
func actor(c echo.Context) (models.Actor, error) {
	id, ok := c.Get(authmw.UserIDKey).(uint)
	if !ok || id == 0 {
		return models.Actor{}, errUnauthenticated
	}
	role, _ := c.Get(authmw.RoleKey).(string)
	return models.Actor{UserID: id, Role: models.Role(role)}, nil
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New(name + " is not a positive integer")
	}
	return uint(id), nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// fail logs err under op and converts it into the matching HTTP error.
func fail(c echo.Context, l *slog.Logger, op string, err error) error {
	event := op + "_error"
	switch {
	case errors.Is(err, errUnauthenticated):
		l.Warn(event, "status", 401, "reason", "unauthenticated")
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", 400, "reason", "invalid request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, firstLine(err))
	case errors.Is(err, service.ErrEmptyCart):
		l.Warn(event, "status", 400, "reason", "cart is empty")
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	case errors.Is(err, service.ErrInvalidCredentials):
		l.Warn(event, "status", 401, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		l.Warn(event, "status", 401, "reason", "invalid or expired token", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, service.ErrUnauthorized):
		l.Warn(event, "status", 403, "reason", "admin access required")
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	case errors.Is(err, service.ErrForbidden):
		l.Warn(event, "status", 403, "reason", "belongs to another user")
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", 404, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", 409, "reason", "conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrFeedUnavailable):
		l.Error(event, "status", 503, "reason", "price feed unavailable", "error", err)
		c.Response().Header().Set("Retry-After", "30")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "exchange rate unavailable, retry later")
	}
	l.Error(event, "status", 500, "reason", "internal error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func badRequest(l *slog.Logger, op, reason string, err error) error {
	l.Warn(op+"_error", "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

func firstLine(err error) string {
	line, _, _ := strings.Cut(err.Error(), "\n")
	return line
}
