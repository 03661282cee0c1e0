package repo

import (
	"context"

	"github.com/akulikov/webshop/internal/models"
)

func (r *GormRepo) CreateOutstandingToken(ctx context.Context, t *models.OutstandingToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// FindActiveToken returns the ledger row for jti only when it has not been
// denylisted; gorm.ErrRecordNotFound otherwise.
func (r *GormRepo) FindActiveToken(ctx context.Context, jti string) (*models.OutstandingToken, error) {
	var token models.OutstandingToken
	err := r.DB.WithContext(ctx).
		Where("jti = ? AND denylisted = ?", jti, false).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DenylistTokensForUser flags every outstanding token of the user. Rows are
// kept; the flag is the revocation. Returns the number of rows touched.
func (r *GormRepo) DenylistTokensForUser(ctx context.Context, userID uint) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&models.OutstandingToken{}).
		Where("user_id = ? AND denylisted = ?", userID, false).
		Update("denylisted", true)
	return result.RowsAffected, result.Error
}

func (r *GormRepo) DenylistToken(ctx context.Context, jti string) error {
	return r.DB.WithContext(ctx).Model(&models.OutstandingToken{}).
		Where("jti = ?", jti).
		Update("denylisted", true).Error
}

func (r *GormRepo) FindResetTokenByUser(ctx context.Context, userID uint) (*models.ResetToken, error) {
	var token models.ResetToken
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *GormRepo) FindResetTokenByKey(ctx context.Context, resetKey string) (*models.ResetToken, error) {
	var token models.ResetToken
	err := r.DB.WithContext(ctx).
		Where("reset_key = ?", resetKey).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *GormRepo) CreateResetToken(ctx context.Context, t *models.ResetToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// DeleteResetToken consumes a one-shot reset key.
func (r *GormRepo) DeleteResetToken(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.ResetToken{}, id).Error
}
