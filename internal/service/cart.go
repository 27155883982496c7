package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/pricing"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
)

// MaxCartQuantity bounds a single cart line.
const MaxCartQuantity = 1000

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CartService) GetCart(ctx context.Context, userID uint) (*transport.CartView, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var count uint
	for _, it := range items {
		count += it.Quantity
	}
	return &transport.CartView{
		Items:      items,
		Total:      pricing.Subtotal(cartLines(items)),
		TotalItems: count,
	}, nil
}

// AddToCart appends a new line. A second add of the same product creates a
// second line instead of bumping the quantity of the first.
func (s *CartService) AddToCart(ctx context.Context, userID, productID, quantity uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity > MaxCartQuantity {
		return nil, fmt.Errorf("%w: quantity must be at most %d", ErrValidation, MaxCartQuantity)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, translate(err)
	}

	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := s.Repo.AddToCart(ctx, item); err != nil {
		return nil, translate(err)
	}
	item.Product = *product

	publish(ctx, s.Events, events.CartTopic, key(userID), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"itemID":    item.ID,
		"productID": productID,
		"quantity":  quantity,
	})
	return item, nil
}

// RemoveFromCart deletes one line of the user's cart.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	if itemID == 0 {
		return nil, fmt.Errorf("%w: item id required", ErrValidation)
	}

	item, err := s.Repo.DeleteCartItem(ctx, itemID, userID)
	if err != nil {
		return nil, translate(err)
	}

	publish(ctx, s.Events, events.CartTopic, key(userID), map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"itemID":    item.ID,
		"productID": item.ProductID,
	})
	return item, nil
}

func cartLines(items []models.CartItem) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{Price: it.Product.Price, Quantity: it.Quantity}
	}
	return lines
}
