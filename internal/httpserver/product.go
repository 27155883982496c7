package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/internal/util"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := max(util.ParseIntDefault(c.QueryParam("page"), 1), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Svc.GetProducts(ctx, offset, limit)
	if err != nil {
		return fail(c, l, "get_products", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": transport.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	page := max(util.ParseIntDefault(c.QueryParam("page"), 1), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(c, l, "search_products", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": transport.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "get_product", "id is not a positive integer", err)
	}

	product, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(c, l, "get_product", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) GetProductBySlug(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_by_slug")

	product, err := h.Svc.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		return fail(c, l, "get_product_by_slug", err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "product_create", err)
	}

	var req transport.CreateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "product_create", "invalid body", err)
	}

	product, err := h.Svc.CreateProduct(ctx, a, req)
	if err != nil {
		return fail(c, l, "product_create", err)
	}

	l.Info("create_product_success", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "product_patch", err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "product_patch", "id is not a positive integer", err)
	}

	var req transport.PatchProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "product_patch", "invalid body", err)
	}

	product, err := h.Svc.PatchProduct(ctx, a, id, req)
	if err != nil {
		return fail(c, l, "product_patch", err)
	}

	l.Info("patch_product_success", "product_id", product.ID)
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	a, err := actor(c)
	if err != nil {
		return fail(c, l, "product_delete", err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "product_delete", "id is not a positive integer", err)
	}

	if err := h.Svc.DeleteProduct(ctx, a, id); err != nil {
		return fail(c, l, "product_delete", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
