package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/internal/util"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) PreviewCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout_preview")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "checkout_preview", err)
	}
	view, err := h.Svc.PreviewCheckout(ctx, a.ID())
	if err != nil {
		return fail(c, l, "checkout_preview", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "checkout", err)
	}
	order, err := h.Svc.Checkout(ctx, a.ID())
	if err != nil {
		return fail(c, l, "checkout", err)
	}

	l.Info("checkout_success", "order_id", order.ID, "total_price", order.TotalPrice.StringFixed(2))
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "get_order", err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "get_order", "id is not a positive integer", err)
	}

	order, err := h.Svc.GetOrder(ctx, a, id)
	if err != nil {
		return fail(c, l, "get_order", err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "list_orders", err)
	}

	page := max(util.ParseIntDefault(c.QueryParam("page"), 1), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, orders, err := h.Svc.ListOrders(ctx, a, c.QueryParam("status"), offset, limit)
	if err != nil {
		return fail(c, l, "list_orders", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": transport.NewPageMeta(page, offset, limit, total),
	})
}

func (h *OrderHTTP) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "update_order_status", err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "update_order_status", "id is not a positive integer", err)
	}

	var req transport.UpdateOrderStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "update_order_status", "invalid body", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, a, id, req.Status)
	if err != nil {
		return fail(c, l, "update_order_status", err)
	}

	l.Info("update_order_status_success", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "delete_order", err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "delete_order", "id is not a positive integer", err)
	}

	if err := h.Svc.DeleteOrder(ctx, a, id); err != nil {
		return fail(c, l, "delete_order", err)
	}

	l.Info("delete_order_success", "order_id", id)
	return c.NoContent(http.StatusNoContent)
}
