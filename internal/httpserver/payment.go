package httpserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/teslix_shop/internal/service"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

const WebhookSecretHeader = "X-Webhook-Secret"

type PaymentHTTP struct {
	Svc    *service.PaymentService
	Secret string
}

// Webhook is called by the payment provider when a payment settles or fails.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	got := c.Request().Header.Get(WebhookSecretHeader)
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
		l.Warn("payment_webhook_error", "status", 401, "reason", "bad webhook secret")
		return echo.NewHTTPError(http.StatusUnauthorized, "bad webhook secret")
	}

	var req transport.PaymentWebhookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(l, "payment_webhook", "invalid body", err)
	}

	payment, err := h.Svc.RecordPayment(ctx, req)
	if err != nil {
		return fail(c, l, "payment_webhook", err)
	}

	l.Info("payment_webhook_success", "order_id", payment.OrderID, "status", payment.Status)
	return c.JSON(http.StatusOK, payment)
}
