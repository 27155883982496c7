package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/models"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).Order("id ASC").First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.DB.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// ProductsByIDs returns the products in the order of ids, skipping unknown ids.
func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var found []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) PatchProduct(ctx context.Context, id uint, apply func(*models.Product) error) (*models.Product, error) {
	var prod models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&prod).Error; err != nil {
			return err
		}
		if err := apply(&prod); err != nil {
			return err
		}
		return tx.Save(&prod).Error
	})
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

// DeleteProduct refuses while order items still point at the product and
// drops any cart lines that do.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ordered int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&ordered).Error; err != nil {
			return err
		}
		if ordered > 0 {
			return ErrProductInUse
		}

		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SearchProducts is the database fallback used when no search index is configured.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	pattern := likePattern(q)
	where := `LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Where(where, pattern, pattern).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.DB.WithContext(ctx).
		Where(where, pattern, pattern).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
