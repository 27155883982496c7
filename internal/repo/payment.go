package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/models"
)

// RecordPayment creates the payment of an order or updates the existing one.
func (r *GormRepo) RecordPayment(ctx context.Context, orderID uint, amount decimal.Decimal, status models.PaymentStatus) (*models.Payment, error) {
	var payment models.Payment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := forUpdate(tx).Where("id = ?", orderID).First(&order).Error; err != nil {
			return err
		}

		err := forUpdate(tx).Where("order_id = ?", orderID).First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			payment = models.Payment{
				OrderID: order.ID,
				UserID:  order.UserID,
				Amount:  amount,
				Status:  status,
			}
			return tx.Create(&payment).Error
		}
		if err != nil {
			return err
		}

		payment.Amount = amount
		payment.Status = status
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormRepo) GetPaymentByOrder(ctx context.Context, orderID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormRepo) ListPaymentsByUser(ctx context.Context, userID uint) ([]models.Payment, error) {
	payments := []models.Payment{}
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
