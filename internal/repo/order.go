package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/models"
)

// Checkout converts the user's cart into an order inside one transaction.
// build receives the cart lines with their products loaded and returns the
// order to persist; an error from build aborts without writing. The cart
// lines read are deleted, and if any of them is already gone the whole
// conversion is rolled back with ErrStaleCart.
func (r *GormRepo) Checkout(ctx context.Context, userID uint, build func([]models.CartItem) (*models.Order, error)) (*models.Order, error) {
	var order *models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lines []models.CartItem
		if err := forUpdate(tx).Where("user_id = ?", userID).Order("id ASC").Find(&lines).Error; err != nil {
			return err
		}

		if len(lines) > 0 {
			if err := attachProducts(tx, lines); err != nil {
				return err
			}
		}

		o, err := build(lines)
		if err != nil {
			return err
		}

		if err := tx.Omit("Payment").Create(o).Error; err != nil {
			return err
		}

		ids := make([]uint, len(lines))
		for i, l := range lines {
			ids[i] = l.ID
		}
		res := tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return ErrStaleCart
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func attachProducts(tx *gorm.DB, lines []models.CartItem) error {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range lines {
		p, ok := byID[lines[i].ProductID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		lines[i].Product = p
	}
	return nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("Payment").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, status models.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	byStatus := func(db *gorm.DB) *gorm.DB {
		if status != "" {
			return db.Where("status = ?", status)
		}
		return db
	}

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Scopes(byStatus).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	orders := make([]models.Order, 0, limit)
	if err := r.DB.WithContext(ctx).Scopes(byStatus).Preload("Payment").Order("id DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// UpdateOrderStatus loads the order with its payment, lets transition mutate
// their statuses and persists both in the same transaction.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, transition func(*models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}

		var payment models.Payment
		err := forUpdate(tx).Where("order_id = ?", order.ID).First(&payment).Error
		switch {
		case err == nil:
			order.Payment = &payment
		case errors.Is(err, gorm.ErrRecordNotFound):
			order.Payment = nil
		default:
			return err
		}

		if err := transition(&order); err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", order.Status).Error; err != nil {
			return err
		}
		if order.Payment != nil {
			if err := tx.Model(&models.Payment{}).Where("id = ?", order.Payment.ID).Update("status", order.Payment.Status).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder removes the order together with its items and payment.
func (r *GormRepo) DeleteOrder(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
