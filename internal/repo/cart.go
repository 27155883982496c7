package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/teslix_shop/internal/models"
)

func (r *GormRepo) GetCart(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if err := r.DB.WithContext(ctx).Preload("Product").Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart always inserts a new line, even when the user already has one
// for the same product.
func (r *GormRepo) AddToCart(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, id, userID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}
		if item.UserID != userID {
			return ErrNotOwner
		}
		return tx.Delete(&models.CartItem{}, item.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
