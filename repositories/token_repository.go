package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"inkpost-api/models"
)

// TokenRepository persists the personal_access_tokens rows that back bearer tokens.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, token *models.PersonalAccessToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *TokenRepository) FindByTokenID(ctx context.Context, tokenID string) (*models.PersonalAccessToken, error) {
	var token models.PersonalAccessToken
	if err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Touch records that the token was just used.
func (r *TokenRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PersonalAccessToken{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

// DeleteAllForUser revokes every token issued to userID and returns how many were removed.
func (r *TokenRepository) DeleteAllForUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PersonalAccessToken{})
	return res.RowsAffected, res.Error
}
