package transport

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

type CartItemUpdate struct {
	ProductID uint `json:"productId"`
	Quantity  uint `json:"quantity"`
}

type UpdateCartRequest struct {
	Products []CartItemUpdate `json:"products"`
}

// CartLine is a cart item joined with its (eligible) product. Price is the
// live product price; the order engine copies it into the order snapshot.
type CartLine struct {
	ProductID uint   `json:"productId"`
	Name      string `json:"name"`
	Quantity  uint   `json:"quantity"`
	Price     int64  `json:"price"`
}

type CartView struct {
	ID         uint       `json:"id"`
	UserID     uint       `json:"userId"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Items      []CartLine `json:"items"`
	TotalPrice int64      `json:"totalPrice"`
}

type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       uint   `json:"stock"`
	CategoryID  uint   `json:"category_id"`
}

// ProductUpdateRequest carries a partial patch: only non-nil fields are
// applied, everything else keeps its stored value.
type ProductUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	Stock       *uint   `json:"stock,omitempty"`
	CategoryID  *uint   `json:"category_id,omitempty"`
	Disabled    *bool   `json:"disabled,omitempty"`
}

type ListMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}
