package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"       json:"id"`
	Username     string    `gorm:"size:80;uniqueIndex;not null"   json:"username"`
	Email        string    `gorm:"size:120;uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"not null"                       json:"-"`
	Role         Role      `gorm:"size:16;not null"               json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u User) Actor() Actor { return Actor{UserID: u.ID, Role: u.Role} }

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"                 json:"id"`
	Token     string `gorm:"size:64;uniqueIndex;not null" json:"-"`
	UserID    uint   `gorm:"index;not null"             json:"user_id"`
	JTI       string `gorm:"size:64;uniqueIndex;not null" json:"jti"`
	ExpiresAt int64  `gorm:"not null"                   json:"expires_at"`
	Revoked   bool   `gorm:"default:false"              json:"revoked"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	Name        string          `gorm:"size:100;not null"              json:"name"`
	Slug        string          `gorm:"size:120;index"                 json:"slug"`
	Description string          `gorm:"type:text"                      json:"description"`
	ImageURL    string          `gorm:"size:255"                       json:"image_url"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"    json:"price"`
	Stock       int             `gorm:"not null;default:0"             json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CartItem rows are never merged: adding a product twice yields two lines.
type CartItem struct {
	ID        uint    `gorm:"primaryKey"                          json:"id"`
	UserID    uint    `gorm:"index;not null"                      json:"user_id"`
	ProductID uint    `gorm:"index;not null"                      json:"product_id"`
	Quantity  uint    `gorm:"not null;default:1;check:quantity>0" json:"quantity"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE"         json:"product"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderSuccessful OrderStatus = "Successful"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
	OrderRefunded   OrderStatus = "Refunded"
)

var orderStatuses = []OrderStatus{OrderPending, OrderSuccessful, OrderDelivered, OrderCancelled, OrderRefunded}

// ParseOrderStatus matches case-insensitively and returns the canonical spelling.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range orderStatuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

type Order struct {
	ID         uint            `gorm:"primaryKey"                                   json:"id"`
	UserID     uint            `gorm:"index;not null"                               json:"user_id"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"                  json:"total_price"`
	Status     OrderStatus     `gorm:"size:32;index;not null"                       json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payment    *Payment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment,omitempty"`
}

// OrderItem is a snapshot of a cart line; Price is copied from the product at checkout.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"index;not null"              json:"product_id"`
	Quantity  uint            `gorm:"not null"                    json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Product   *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"product,omitempty"`
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "Pending"
	PaymentSuccessful PaymentStatus = "Successful"
	PaymentFailed     PaymentStatus = "Failed"
	PaymentRefunded   PaymentStatus = "Refunded"
)

var paymentStatuses = []PaymentStatus{PaymentPending, PaymentSuccessful, PaymentFailed, PaymentRefunded}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	s = strings.TrimSpace(s)
	for _, st := range paymentStatuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

type Payment struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"uniqueIndex;not null"        json:"order_id"`
	UserID    uint            `gorm:"index;not null"              json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status    PaymentStatus   `gorm:"size:32;not null"            json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Actor is the authenticated identity a request acts as.
type Actor struct {
	UserID uint
	Role   Role
}

func (a Actor) ID() uint { return a.UserID }

func (a Actor) CanManageOrders() bool { return a.Role == RoleAdmin }

func (a Actor) CanManageCatalog() bool { return a.Role == RoleAdmin }

func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Product{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
	}
}
