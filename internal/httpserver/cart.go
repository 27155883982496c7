package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "get_cart", err)
	}
	view, err := h.Svc.GetCart(ctx, a.ID())
	if err != nil {
		return fail(c, l, "get_cart", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "add_to_cart", err)
	}

	var req transport.AddToCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "add_to_cart", "invalid body", err)
	}

	item, err := h.Svc.AddToCart(ctx, a.ID(), req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, l, "add_to_cart", err)
	}

	l.Info("add_to_cart_success", "item_id", item.ID, "product_id", item.ProductID)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "remove_from_cart", err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "remove_from_cart", "id is not a positive integer", err)
	}

	if _, err := h.Svc.RemoveFromCart(ctx, a.ID(), id); err != nil {
		return fail(c, l, "remove_from_cart", err)
	}

	l.Info("remove_from_cart_success", "item_id", id)
	return c.NoContent(http.StatusNoContent)
}
