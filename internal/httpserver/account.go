package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

type AccountHTTP struct {
	Svc *service.AccountService
}

func (h *AccountHTTP) GetAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.get")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "get_account", err)
	}
	user, err := h.Svc.Profile(ctx, a.ID())
	if err != nil {
		return fail(c, l, "get_account", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AccountHTTP) UpdateAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.update")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "update_account", err)
	}

	var req transport.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "update_account", "invalid body", err)
	}

	user, err := h.Svc.UpdateProfile(ctx, a.ID(), req.Username, req.Email)
	if err != nil {
		return fail(c, l, "update_account", err)
	}

	l.Info("update_account_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}

func (h *AccountHTTP) DeleteAccount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.delete")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "delete_account", err)
	}
	if err := h.Svc.DeleteAccount(ctx, a.ID()); err != nil {
		return fail(c, l, "delete_account", err)
	}

	clearAuthCookies(c)
	l.Info("delete_account_success", "user_id", a.ID())
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "account.dashboard")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "dashboard", err)
	}
	dash, err := h.Svc.Dashboard(ctx, a.ID())
	if err != nil {
		return fail(c, l, "dashboard", err)
	}
	return c.JSON(http.StatusOK, dash)
}
