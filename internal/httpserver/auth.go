package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	jwthelp "github.com/Skotchmaster/teslix_shop/pkg/jwt"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
	"github.com/Skotchmaster/teslix_shop/pkg/tokens"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "register", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fail(c, l, "register", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "login", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, l, "login", err)
	}

	setAuthCookies(c, &res.Pair)
	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.LoginResponse{User: res.User, IsAdmin: res.IsAdmin})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	ck, err := c.Cookie(jwthelp.RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_error", "status", 401, "reason", "refresh token missing")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	pair, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		clearAuthCookies(c)
		return fail(c, l, "refresh", err)
	}

	setAuthCookies(c, pair)
	l.Info("refresh_success")
	return c.JSON(http.StatusOK, map[string]any{
		"access_exp":  pair.AccessExp.Unix(),
		"refresh_exp": pair.RefreshExp.Unix(),
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		if err := h.Svc.LogOut(ctx, ck.Value); err != nil {
			return fail(c, l, "logout", err)
		}
	}

	clearAuthCookies(c)
	l.Info("logout_success")
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.password_reset")

	var req transport.PasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "password_reset", "invalid body", err)
	}

	if err := h.Svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return fail(c, l, "password_reset", err)
	}

	l.Info("password_reset_requested")
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "if an account exists for this email, a reset link has been sent",
	})
}

func (h *AuthHTTP) ConfirmPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.password_reset_confirm")

	var req transport.PasswordResetConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "password_reset_confirm", "invalid body", err)
	}

	if err := h.Svc.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return fail(c, l, "password_reset_confirm", err)
	}

	clearAuthCookies(c)
	l.Info("password_reset_success")
	return c.NoContent(http.StatusNoContent)
}

func setAuthCookies(c echo.Context, p *tokens.Pair) {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, p.AccessToken, "/", p.AccessExp))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, p.RefreshToken, "/", p.RefreshExp))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/"))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/"))
}
