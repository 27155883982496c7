package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	jwthelp "github.com/Skotchmaster/teslix_shop/pkg/jwt"
)

// CreateUser inserts u unless the username or email is taken.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := userTaken(tx, u.Username, u.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrAlreadyExists
		}
		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return err
		}
		return nil
	})
}

func userTaken(tx *gorm.DB, username, email string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.User{}).Where("(username = ? OR LOWER(email) = ?)", username, strings.ToLower(email))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UpdateProfile(ctx context.Context, id uint, username, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		taken, err := userTaken(tx, username, email, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrAlreadyExists
		}
		user.Username = username
		user.Email = email
		return tx.Model(&user).Updates(map[string]any{"username": username, "email": email}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword stores a new hash and revokes every refresh token of the user.
func (r *GormRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.setPassword(ctx, id, hash, "id = ?", id)
}

// SwapPassword replaces the hash only while it still equals current.
func (r *GormRepo) SwapPassword(ctx context.Context, id uint, current, hash string) error {
	return r.setPassword(ctx, id, hash, "id = ? AND password_hash = ?", id, current)
}

func (r *GormRepo) setPassword(ctx context.Context, id uint, hash string, where string, args ...any) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where(where, args...).Update("password_hash", hash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.RefreshToken{}).Where("user_id = ?", id).Update("revoked", true).Error
	})
}

// EnsureAdmin creates the account if needed and grants it the admin role.
func (r *GormRepo) EnsureAdmin(ctx context.Context, u *models.User) (bool, error) {
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("LOWER(email) = ?", strings.ToLower(u.Email)).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u.Role = models.RoleAdmin
			created = true
			return tx.Create(u).Error
		}
		if err != nil {
			return err
		}
		*u = existing
		if existing.Role == models.RoleAdmin {
			return nil
		}
		u.Role = models.RoleAdmin
		return tx.Model(&existing).Update("role", models.RoleAdmin).Error
	})
	return created, err
}

// DeleteUser removes the account and everything it owns.
func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderIDs := tx.Model(&models.Order{}).Select("id").Where("user_id = ?", id)

		if err := tx.Where("order_id IN (?)", orderIDs).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Order{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) AddRefreshToken(ctx context.Context, userID uint, token, jti string, exp time.Time) error {
	return r.DB.WithContext(ctx).Create(&models.RefreshToken{
		Token:     jwthelp.Sha256Hex(token),
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: exp.Unix(),
	}).Error
}

// RotateRefreshToken revokes oldJTI and stores its replacement atomically.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, userID uint, token, jti string, exp time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.RefreshToken
		if err := forUpdate(tx).Where("jti = ?", oldJTI).First(&old).Error; err != nil {
			return err
		}
		if old.Revoked || old.ExpiresAt < time.Now().Unix() || old.UserID != userID {
			return ErrTokenRevoked
		}

		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", old.ID, false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenRevoked
		}

		return tx.Create(&models.RefreshToken{
			Token:     jwthelp.Sha256Hex(token),
			UserID:    userID,
			JTI:       jti,
			ExpiresAt: exp.Unix(),
		}).Error
	})
}

func (r *GormRepo) FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", jwthelp.Sha256Hex(token)).
		Update("revoked", true).Error
}
