package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	authmw "github.com/Skotchmaster/teslix_shop/pkg/middleware/auth"
)

const CSRFHeader = "X-CSRF-Token"

type Deps struct {
	Auth    *AuthHTTP
	Account *AccountHTTP
	Catalog *CatalogHTTP
	Cart    *CartHTTP
	Order   *OrderHTTP
	Payment *PaymentHTTP

	JWTSecret []byte
	Refresher authmw.Refresher

	// Ready reports whether the storage behind the API is reachable.
	Ready func(ctx context.Context) error

	// RateLimit is the per-client request rate allowed on the auth and checkout
	// routes. Zero disables limiting.
	RateLimit rate.Limit
	RateBurst int

	CSRF bool
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := authmw.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher)
	limit := limiter(d.RateLimit, d.RateBurst)

	api := e.Group("/api/v1")
	if d.CSRF {
		api.Use(csrf())
	}

	auth := api.Group("/auth", limit...)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.LogOut)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/password/reset", d.Auth.RequestPasswordReset)
	auth.POST("/password/reset/confirm", d.Auth.ConfirmPasswordReset)

	products := api.Group("/products")
	products.GET("", d.Catalog.GetProducts)
	products.GET("/search", d.Catalog.SearchProducts)
	products.GET("/:id", d.Catalog.GetProduct)
	products.GET("/slug/:slug", d.Catalog.GetProductBySlug)

	user := api.Group("", authMW.RequireAuth)
	user.GET("/account", d.Account.GetAccount)
	user.PATCH("/account", d.Account.UpdateAccount)
	user.DELETE("/account", d.Account.DeleteAccount)
	user.GET("/dashboard", d.Account.Dashboard)

	user.GET("/cart", d.Cart.GetCart)
	user.POST("/cart", d.Cart.AddToCart)
	user.DELETE("/cart/items/:id", d.Cart.RemoveFromCart)

	user.GET("/checkout", d.Order.PreviewCheckout)
	user.POST("/checkout", d.Order.Checkout, limit...)
	user.GET("/orders/:id", d.Order.GetOrder)

	admin := api.Group("/admin", authMW.RequireAdmin)
	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PATCH("/products/:id", d.Catalog.PatchProduct)
	admin.DELETE("/products/:id", d.Catalog.DeleteProduct)
	admin.GET("/orders", d.Order.ListOrders)
	admin.PATCH("/orders/:id", d.Order.UpdateOrderStatus)
	admin.DELETE("/orders/:id", d.Order.DeleteOrder)

	if d.Payment != nil && d.Payment.Secret != "" {
		api.POST("/payments/webhook", d.Payment.Webhook)
	}
}

func limiter(r rate.Limit, burst int) []echo.MiddlewareFunc {
	if r <= 0 {
		return nil
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      r,
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomw.RateLimiter(store)}
}

// csrf uses the double submit cookie scheme. Clients echo the _csrf cookie in
// the X-CSRF-Token header on unsafe methods.
func csrf() echo.MiddlewareFunc {
	skip := []string{
		"/api/v1/auth/login",
		"/api/v1/auth/register",
		"/api/v1/auth/refresh",
		"/api/v1/auth/password/",
		"/api/v1/payments/webhook",
	}
	return echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "header:" + CSRFHeader,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			for _, p := range skip {
				if strings.HasPrefix(path, p) {
					return true
				}
			}
			return false
		},
	})
}
