package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
)

// PaymentService records settlement results reported by the payment provider.
type PaymentService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *PaymentService) RecordPayment(ctx context.Context, req transport.PaymentWebhookRequest) (*models.Payment, error) {
	if req.OrderID == 0 {
		return nil, fmt.Errorf("%w: order_id required", ErrValidation)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must be >= 0", ErrValidation)
	}
	st, ok := models.ParsePaymentStatus(req.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, req.Status)
	}

	payment, err := s.Repo.RecordPayment(ctx, req.OrderID, req.Amount.Round(2), st)
	if err != nil {
		return nil, translate(err)
	}

	publish(ctx, s.Events, events.PaymentTopic, key(payment.OrderID), map[string]any{
		"type":      "payment_recorded",
		"paymentID": payment.ID,
		"orderID":   payment.OrderID,
		"status":    payment.Status,
		"amount":    payment.Amount.StringFixed(2),
	})
	return payment, nil
}
