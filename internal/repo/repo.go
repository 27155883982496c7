package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/teslix_shop/internal/models"
)

var (
	ErrStaleCart     = errors.New("cart changed during checkout")
	ErrNotOwner      = errors.New("record belongs to another user")
	ErrProductInUse  = errors.New("product is referenced by orders")
	ErrTokenRevoked  = errors.New("token expired or revoked")
	ErrAlreadyExists = errors.New("already exists")
)

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(models.All()...)
}

// forUpdate takes row locks where the dialect supports SELECT ... FOR UPDATE.
// sqlite serialises writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}
