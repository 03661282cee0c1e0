package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/akulikov/webshop/internal/models"
)

// eligible narrows a product query to purchasable rows: not disabled, not
// soft-deleted. Every listing/detail/cart/order read goes through it.
func eligible(db *gorm.DB) *gorm.DB {
	return db.Where("disabled = ? AND deleted_at IS NULL", false)
}

func (r *GormRepo) ListEligibleProducts(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	q := eligible(r.DB.WithContext(ctx).Model(&models.Product{}))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormRepo) GetEligibleProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := eligible(r.DB.WithContext(ctx)).First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetEligibleProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	err := eligible(r.DB.WithContext(ctx)).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *GormRepo) GetProductsByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	err := r.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// SoftDeleteProduct sets deleted_at instead of removing the row. Explicit by
// design: callers state the intent, nothing rewrites a hard delete.
func (r *GormRepo) SoftDeleteProduct(ctx context.Context, id uint) error {
	result := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock applies the guarded update that makes checkout safe under
// concurrency: the WHERE clause re-checks stock inside the same statement, so
// two competing transactions can never both take the last unit.
func (r *GormRepo) DecrementStock(ctx context.Context, id uint, quantity uint) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
