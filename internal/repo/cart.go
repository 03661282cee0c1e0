package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/akulikov/webshop/internal/models"
)

// GetOrCreateCart is idempotent: at most one cart per user, created lazily on
// first access.
func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where(models.Cart{UserID: userID}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.DB.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) UpsertCartItem(ctx context.Context, cartID, productID, quantity uint) error {
	var item models.CartItem
	tx := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item)
	if tx.Error == nil {
		item.Quantity = quantity
		return r.DB.WithContext(ctx).Save(&item).Error
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return tx.Error
	}

	item = models.CartItem{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.DB.WithContext(ctx).Create(&item).Error
}

// DeleteCartItem is a no-op when the line does not exist.
func (r *GormRepo) DeleteCartItem(ctx context.Context, cartID, productID uint) error {
	return r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *GormRepo) DeleteCart(ctx context.Context, userID uint) error {
	return r.WithTransaction(ctx, func(tx *GormRepo) error {
		var cart models.Cart
		err := tx.DB.Where("user_id = ?", userID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.DB.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.DB.Delete(&cart).Error
	})
}
