package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	jwthelp "github.com/Skotchmaster/teslix_shop/pkg/jwt"
	"github.com/Skotchmaster/teslix_shop/pkg/tokens"
)

const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// Refresher swaps a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
}

type AutoRefreshMiddleware struct {
	JWTSecret []byte
	Refresher Refresher
}

func NewAutoRefreshMiddleware(secret []byte, refresher Refresher) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret: secret,
		Refresher: refresher,
	}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AutoRefreshMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(jwthelp.AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return m.refreshAndServe(c, next, validator)
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err == nil {
			return serve(c, next, validator, claims)
		}

		if !errors.Is(err, jwt.ErrTokenExpired) {
			clearAuthCookies(c)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		return m.refreshAndServe(c, next, validator)
	}
}

func (m *AutoRefreshMiddleware) refreshAndServe(c echo.Context, next echo.HandlerFunc, validator ValidatorFunc) error {
	refreshCookie, err := c.Cookie(jwthelp.RefreshCookie)
	if err != nil || refreshCookie.Value == "" || m.Refresher == nil {
		clearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	pair, err := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		clearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh failed")
	}

	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))

	claims, err := tokens.AccessClaimsFromToken(pair.AccessToken, m.JWTSecret)
	if err != nil {
		clearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "new access token invalid")
	}
	return serve(c, next, validator, claims)
}

func serve(c echo.Context, next echo.HandlerFunc, validator ValidatorFunc, claims *tokens.AccessClaims) error {
	if validator != nil {
		if err := validator(claims); err != nil {
			return err
		}
	}
	if err := setUserContext(c, claims); err != nil {
		return err
	}
	return next(c)
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) error {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		clearAuthCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	c.Set(UserIDKey, uint(id))
	c.Set(RoleKey, claims.Role)
	return nil
}
