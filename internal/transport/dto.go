package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/pricing"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email"    validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email"    validate:"required,email,max=120"`
}

type LoginResponse struct {
	User    *models.User `json:"user"`
	IsAdmin bool         `json:"is_admin"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,max=100"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"   validate:"omitempty,max=255"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"       validate:"gte=0"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,max=100"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"   validate:"omitempty,max=255"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"       validate:"omitempty,gte=0"`
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  uint `json:"quantity" validate:"omitempty,min=1,max=1000"`
}

type CartView struct {
	Items      []models.CartItem `json:"items"`
	Total      decimal.Decimal   `json:"total"`
	TotalItems uint              `json:"total_items"`
}

type CheckoutView struct {
	Items    []models.CartItem `json:"items"`
	Quote    pricing.Quote     `json:"quote"`
	Asset    string            `json:"asset"`
	Currency string            `json:"currency"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type PaymentWebhookRequest struct {
	OrderID uint            `json:"order_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"   validate:"required"`
}

type Dashboard struct {
	User     *models.User     `json:"user"`
	Orders   []models.Order   `json:"orders"`
	Payments []models.Payment `json:"payments"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

func NewPageMeta(page, offset, limit int, total int64) PageMeta {
	return PageMeta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}
