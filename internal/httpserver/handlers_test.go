package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/pricefeed"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/pkg/db"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
	authmw "github.com/Skotchmaster/teslix_shop/pkg/middleware/auth"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, repo.Migrate(ctx, gdb))
	return &repo.GormRepo{DB: gdb}
}

func seedUser(t *testing.T, r *repo.GormRepo, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, r *repo.GormRepo, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Slug: name, Price: decimal.RequireFromString(price), Stock: 3}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func staticFeed(rate string) pricefeed.Feed {
	return pricefeed.FeedFunc(func(context.Context, string) (decimal.Decimal, error) {
		return decimal.RequireFromString(rate), nil
	})
}

func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// newContext builds a context as the auth middleware would leave it for u.
func newContext(method, target string, body any, u *models.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(method, target, body), rec)
	if u != nil {
		c.Set(authmw.UserIDKey, u.ID)
		c.Set(authmw.RoleKey, string(u.Role))
	}
	return c, rec
}

func withID(c echo.Context, id uint) {
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(id), 10))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestCartHTTP_RemoveForeignLine(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	bob := seedUser(t, r, "bob", models.RoleUser)
	p := seedProduct(t, r, "Widget", "10.00")

	h := &CartHTTP{Svc: &service.CartService{Repo: r}}
	line, err := h.Svc.AddToCart(context.Background(), bob.ID, p.ID, 1)
	require.NoError(t, err)

	c, _ := newContext(http.MethodDelete, "/", nil, alice)
	withID(c, line.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, h.RemoveFromCart(c)))

	items, err := r.GetCart(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	c, rec := newContext(http.MethodDelete, "/", nil, bob)
	withID(c, line.ID)
	require.NoError(t, h.RemoveFromCart(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCartHTTP_AddAndView(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	p := seedProduct(t, r, "Widget", "10.00")
	h := &CartHTTP{Svc: &service.CartService{Repo: r, Events: &events.Memory{}}}

	for range 2 {
		c, rec := newContext(http.MethodPost, "/", map[string]any{"product_id": p.ID, "quantity": 2}, alice)
		require.NoError(t, h.AddToCart(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	c, rec := newContext(http.MethodGet, "/", nil, alice)
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Items      []models.CartItem `json:"items"`
		Total      decimal.Decimal   `json:"total"`
		TotalItems uint              `json:"total_items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Len(t, view.Items, 2)
	assert.Equal(t, "40.00", view.Total.StringFixed(2))
	assert.Equal(t, uint(4), view.TotalItems)
}

func TestCartHTTP_AddRejectsHugeQuantity(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	p := seedProduct(t, r, "Widget", "10.00")
	h := &CartHTTP{Svc: &service.CartService{Repo: r}}

	c, _ := newContext(http.MethodPost, "/", map[string]any{"product_id": p.ID, "quantity": uint64(1) << 62}, alice)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.AddToCart(c)))

	items, err := r.GetCart(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartHTTP_Unauthenticated(t *testing.T) {
	h := &CartHTTP{Svc: &service.CartService{Repo: newTestRepo(t)}}
	c, _ := newContext(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, h.GetCart(c)))
}

func TestOrderHTTP_PreviewCheckout_FeedDown(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	p := seedProduct(t, r, "Widget", "10.00")
	_, err := (&service.CartService{Repo: r}).AddToCart(context.Background(), alice.ID, p.ID, 1)
	require.NoError(t, err)

	down := pricefeed.FeedFunc(func(context.Context, string) (decimal.Decimal, error) {
		return decimal.Zero, pricefeed.ErrUnavailable
	})
	h := &OrderHTTP{Svc: &service.OrderService{Repo: r, Feed: down, Asset: "ethereum", Currency: "usd"}}

	c, rec := newContext(http.MethodGet, "/", nil, alice)
	assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, h.PreviewCheckout(c)))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestOrderHTTP_Checkout(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	p := seedProduct(t, r, "Widget", "10.00")
	h := &OrderHTTP{Svc: &service.OrderService{Repo: r, Feed: staticFeed("2140"), Asset: "ethereum", Currency: "usd"}}

	c, _ := newContext(http.MethodPost, "/", nil, alice)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.Checkout(c)), "empty cart")

	_, err := (&service.CartService{Repo: r}).AddToCart(context.Background(), alice.ID, p.ID, 2)
	require.NoError(t, err)

	c, rec := newContext(http.MethodGet, "/", nil, alice)
	require.NoError(t, h.PreviewCheckout(c))
	var preview struct {
		Quote struct {
			Total         decimal.Decimal `json:"total"`
			TotalExternal decimal.Decimal `json:"total_external"`
		} `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "21.40", preview.Quote.Total.StringFixed(2))
	assert.Equal(t, "0.010000", preview.Quote.TotalExternal.StringFixed(6))

	c, rec = newContext(http.MethodPost, "/", nil, alice)
	require.NoError(t, h.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "20.00", order.TotalPrice.StringFixed(2))

	items, err := r.GetCart(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderHTTP_GetOrder_Ownership(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	bob := seedUser(t, r, "bob", models.RoleUser)
	root := seedUser(t, r, "root", models.RoleAdmin)
	p := seedProduct(t, r, "Widget", "10.00")

	svc := &service.OrderService{Repo: r, Feed: staticFeed("1"), Asset: "ethereum", Currency: "usd"}
	_, err := (&service.CartService{Repo: r}).AddToCart(context.Background(), alice.ID, p.ID, 1)
	require.NoError(t, err)
	order, err := svc.Checkout(context.Background(), alice.ID)
	require.NoError(t, err)

	h := &OrderHTTP{Svc: svc}
	cases := []struct {
		name string
		user *models.User
		want int
	}{
		{"owner", alice, http.StatusOK},
		{"admin", root, http.StatusOK},
		{"stranger", bob, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", nil, tc.user)
			withID(c, order.ID)
			err := h.GetOrder(c)
			if tc.want == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			assert.Equal(t, tc.want, statusOf(t, err))
		})
	}

	c, _ := newContext(http.MethodGet, "/", nil, alice)
	withID(c, order.ID+100)
	assert.Equal(t, http.StatusNotFound, statusOf(t, h.GetOrder(c)))
}

func TestOrderHTTP_UpdateOrderStatus(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	root := seedUser(t, r, "root", models.RoleAdmin)
	p := seedProduct(t, r, "Widget", "10.00")

	svc := &service.OrderService{Repo: r, Feed: staticFeed("1"), Asset: "ethereum", Currency: "usd"}
	_, err := (&service.CartService{Repo: r}).AddToCart(context.Background(), alice.ID, p.ID, 1)
	require.NoError(t, err)
	order, err := svc.Checkout(context.Background(), alice.ID)
	require.NoError(t, err)
	_, err = r.RecordPayment(context.Background(), order.ID, order.TotalPrice, models.PaymentPending)
	require.NoError(t, err)

	h := &OrderHTTP{Svc: svc}

	c, _ := newContext(http.MethodPatch, "/", map[string]string{"status": "Delivered"}, alice)
	withID(c, order.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, h.UpdateOrderStatus(c)), "non-admin")

	c, _ = newContext(http.MethodPatch, "/", map[string]string{"status": "Shipped"}, root)
	withID(c, order.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.UpdateOrderStatus(c)), "unknown status")

	c, _ = newContext(http.MethodPatch, "/", map[string]string{}, root)
	withID(c, order.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.UpdateOrderStatus(c)), "missing status")

	got, err := r.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)

	c, rec := newContext(http.MethodPatch, "/", map[string]string{"status": "delivered"}, root)
	withID(c, order.ID)
	require.NoError(t, h.UpdateOrderStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err = r.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.Status)
	require.NotNil(t, got.Payment)
	assert.Equal(t, models.PaymentSuccessful, got.Payment.Status)
}

func TestOrderHTTP_ListAndDelete(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	root := seedUser(t, r, "root", models.RoleAdmin)
	p := seedProduct(t, r, "Widget", "10.00")

	svc := &service.OrderService{Repo: r, Feed: staticFeed("1"), Asset: "ethereum", Currency: "usd"}
	_, err := (&service.CartService{Repo: r}).AddToCart(context.Background(), alice.ID, p.ID, 1)
	require.NoError(t, err)
	order, err := svc.Checkout(context.Background(), alice.ID)
	require.NoError(t, err)

	h := &OrderHTTP{Svc: svc}

	c, _ := newContext(http.MethodGet, "/?status=Pending", nil, alice)
	assert.Equal(t, http.StatusForbidden, statusOf(t, h.ListOrders(c)))

	c, rec := newContext(http.MethodGet, "/?status=Pending&page=1&size=10", nil, root)
	require.NoError(t, h.ListOrders(c))
	var page struct {
		Data []models.Order `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Meta.Total)

	c, rec = newContext(http.MethodDelete, "/", nil, root)
	withID(c, order.ID)
	require.NoError(t, h.DeleteOrder(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = r.GetProduct(context.Background(), p.ID)
	assert.NoError(t, err, "products survive order deletion")
}

func TestPaymentHTTP_Webhook(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	p := seedProduct(t, r, "Widget", "10.00")
	_, err := (&service.CartService{Repo: r}).AddToCart(context.Background(), alice.ID, p.ID, 1)
	require.NoError(t, err)
	order, err := (&service.OrderService{Repo: r}).Checkout(context.Background(), alice.ID)
	require.NoError(t, err)

	h := &PaymentHTTP{Svc: &service.PaymentService{Repo: r}, Secret: "s3cret"}
	body := map[string]any{"order_id": order.ID, "amount": "10.00", "status": "Successful"}

	c, _ := newContext(http.MethodPost, "/", body, nil)
	c.Request().Header.Set(WebhookSecretHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, h.Webhook(c)))

	c, _ = newContext(http.MethodPost, "/", map[string]any{"order_id": order.ID, "amount": "1", "status": "Lost"}, nil)
	c.Request().Header.Set(WebhookSecretHeader, "s3cret")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.Webhook(c)))

	c, _ = newContext(http.MethodPost, "/", map[string]any{"order_id": order.ID + 50, "amount": "1", "status": "Pending"}, nil)
	c.Request().Header.Set(WebhookSecretHeader, "s3cret")
	assert.Equal(t, http.StatusNotFound, statusOf(t, h.Webhook(c)))

	c, rec := newContext(http.MethodPost, "/", body, nil)
	c.Request().Header.Set(WebhookSecretHeader, "s3cret")
	require.NoError(t, h.Webhook(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	payment, err := r.GetPaymentByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccessful, payment.Status)
	assert.Equal(t, alice.ID, payment.UserID)
}

func TestCatalogHTTP_AdminWrites(t *testing.T) {
	r := newTestRepo(t)
	alice := seedUser(t, r, "alice", models.RoleUser)
	root := seedUser(t, r, "root", models.RoleAdmin)
	h := &CatalogHTTP{Svc: &service.CatalogService{Repo: r}}

	body := map[string]any{"name": "Blue Widget", "price": "12.50", "stock": 4}

	c, _ := newContext(http.MethodPost, "/", body, alice)
	assert.Equal(t, http.StatusForbidden, statusOf(t, h.CreateProduct(c)))

	c, rec := newContext(http.MethodPost, "/", body, root)
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "blue-widget", created.Slug)

	c, rec = newContext(http.MethodGet, "/", nil, nil)
	c.SetParamNames("slug")
	c.SetParamValues("blue-widget")
	require.NoError(t, h.GetProductBySlug(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPatch, "/", map[string]any{"price": "9.99"}, root)
	withID(c, created.ID)
	require.NoError(t, h.PatchProduct(c))
	var patched models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	assert.Equal(t, "9.99", patched.Price.StringFixed(2))

	c, rec = newContext(http.MethodDelete, "/", nil, root)
	withID(c, created.ID)
	require.NoError(t, h.DeleteProduct(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newContext(http.MethodGet, "/", nil, nil)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, h.GetProduct(c)))
}
