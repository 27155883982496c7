package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/pricefeed"
	"github.com/Skotchmaster/teslix_shop/internal/pricing"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Feed     pricefeed.Feed
	Asset    string
	Currency string
	Events   events.Publisher
}

// PreviewCheckout prices the cart including tax and the external-asset total.
// Nothing is written.
func (s *OrderService) PreviewCheckout(ctx context.Context, userID uint) (*transport.CheckoutView, error) {
	l := logging.FromContext(ctx).With("svc", "order.preview")

	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	rate, err := s.Feed.Rate(ctx, s.Asset)
	if err != nil {
		l.Warn("price_feed_error", "asset", s.Asset, "error", err)
		return nil, errors.Join(ErrFeedUnavailable, err)
	}

	quote, err := pricing.NewQuote(cartLines(items), rate)
	if err != nil {
		return nil, errors.Join(ErrFeedUnavailable, err)
	}

	return &transport.CheckoutView{
		Items:    items,
		Quote:    quote,
		Asset:    s.Asset,
		Currency: s.Currency,
	}, nil
}

// Checkout turns the cart into a Pending order priced at the products'
// current prices. The stored total is the pre-tax subtotal.
func (s *OrderService) Checkout(ctx context.Context, userID uint) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout", "user_id", userID)

	order, err := s.Repo.Checkout(ctx, userID, func(lines []models.CartItem) (*models.Order, error) {
		if len(lines) == 0 {
			return nil, ErrEmptyCart
		}
		o := &models.Order{
			UserID:     userID,
			Status:     models.OrderPending,
			TotalPrice: pricing.Subtotal(cartLines(lines)),
			Items:      make([]models.OrderItem, 0, len(lines)),
		}
		for _, line := range lines {
			o.Items = append(o.Items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Product.Price,
			})
		}
		return o, nil
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			return nil, err
		}
		if errors.Is(err, repo.ErrStaleCart) {
			l.Warn("checkout_conflict", "error", err)
		}
		return nil, translate(err)
	}

	publish(ctx, s.Events, events.OrderTopic, key(order.ID), map[string]any{
		"type":       "order_created",
		"orderID":    order.ID,
		"userID":     userID,
		"totalPrice": order.TotalPrice.StringFixed(2),
		"items":      len(order.Items),
	})
	return order, nil
}

// GetOrder returns the order to its owner or to an order manager.
func (s *OrderService) GetOrder(ctx context.Context, actor Principal, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !owns(actor, order.UserID) && (actor == nil || !actor.CanManageOrders()) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor Principal, status string, offset, limit int) (int64, []models.Order, error) {
	if actor == nil || !actor.CanManageOrders() {
		return 0, nil, ErrUnauthorized
	}

	var st models.OrderStatus
	if status != "" {
		parsed, ok := models.ParseOrderStatus(status)
		if !ok {
			return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		st = parsed
	}
	return s.Repo.ListOrders(ctx, st, offset, limit)
}

// UpdateStatus assigns a new status to an order. The capability and the
// status are checked before anything is read or written.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Principal, id uint, status string) (*models.Order, error) {
	if actor == nil || !actor.CanManageOrders() {
		return nil, ErrUnauthorized
	}
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	order, err := s.Repo.UpdateOrderStatus(ctx, id, func(o *models.Order) error {
		ApplyStatus(o, st)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	event := map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  order.Status,
	}
	if order.Payment != nil {
		event["paymentStatus"] = order.Payment.Status
	}
	publish(ctx, s.Events, events.OrderTopic, key(order.ID), event)
	return order, nil
}

// ApplyStatus sets the order status and its side effect on the linked
// payment: Successful and Delivered both settle the payment as Successful.
// Other statuses leave the payment as it is.
func ApplyStatus(o *models.Order, st models.OrderStatus) {
	o.Status = st
	if o.Payment == nil {
		return
	}
	switch st {
	case models.OrderSuccessful, models.OrderDelivered:
		o.Payment.Status = models.PaymentSuccessful
	}
}

func (s *OrderService) DeleteOrder(ctx context.Context, actor Principal, id uint) error {
	if actor == nil || !actor.CanManageOrders() {
		return ErrUnauthorized
	}
	if err := s.Repo.DeleteOrder(ctx, id); err != nil {
		return translate(err)
	}

	publish(ctx, s.Events, events.OrderTopic, key(id), map[string]any{
		"type":    "order_deleted",
		"orderID": id,
	})
	return nil
}
