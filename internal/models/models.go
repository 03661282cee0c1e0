package models

import (
	"time"
)

const (
	RoleClient  = "client"
	RoleManager = "manager"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:client"  json:"role"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null"                 json:"name"`
	Slug string `gorm:"unique;not null"          json:"slug"`
}

// DeletedAt is a plain column, not gorm.DeletedAt: soft deletion happens
// through an explicit repo method, never through Delete interception.
type Product struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"not null"                 json:"name"`
	Description string     `json:"description"`
	Price       int64      `gorm:"not null"                 json:"price"`
	Stock       uint       `gorm:"not null;default:0"       json:"stock"`
	CategoryID  uint       `gorm:"index"                    json:"category_id"`
	Disabled    bool       `gorm:"not null;default:false"   json:"disabled"`
	DeletedAt   *time.Time `gorm:"index"                    json:"deleted_at,omitempty"`
}

type Cart struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"     json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []CartItem `gorm:"foreignKey:CartID"        json:"items"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"              json:"id"`
	CartID    uint `gorm:"uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uint `gorm:"uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  uint `gorm:"not null;default:1;check:quantity>0"   json:"quantity"`
}

type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint        `gorm:"index;not null"           json:"user_id"`
	Total     int64       `gorm:"not null"                 json:"total"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `gorm:"foreignKey:OrderID"       json:"items"`
}

// Price is copied from the cart snapshot at purchase time so later product
// price changes never alter historical orders.
type OrderItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint  `gorm:"index;not null"           json:"order_id"`
	ProductID uint  `gorm:"not null"                 json:"product_id"`
	Quantity  uint  `gorm:"not null"                 json:"quantity"`
	Price     int64 `gorm:"not null"                 json:"price"`
}

// OutstandingToken rows are never deleted, only flagged.
type OutstandingToken struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"index;not null"           json:"user_id"`
	JTI        string    `gorm:"uniqueIndex;not null"     json:"jti"`
	ExpiresAt  time.Time `gorm:"not null"                 json:"expires_at"`
	Denylisted bool      `gorm:"not null;default:false"   json:"denylisted"`
}

type ResetToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	ResetKey  string    `gorm:"unique;not null"          json:"-"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
}
