package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inkpost-api/models"
)

// EngagementRepository manages the like (post_user_likes) and save (post_user) relations.
// Inserts lean on the composite primary key, so a repeated toggle never adds a row.
type EngagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

func (r *EngagementRepository) Like(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostLike{PostID: postID, UserID: userID}).Error
}

func (r *EngagementRepository) Unlike(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{}).Error
}

func (r *EngagementRepository) Save(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostSave{PostID: postID, UserID: userID}).Error
}

func (r *EngagementRepository) Unsave(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostSave{}).Error
}

// CountLikes is the live cardinality of the like relation for postID.
func (r *EngagementRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *EngagementRepository) HasLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *EngagementRepository) HasSaved(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostSave{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// LikedPostIDs lists the posts userID likes, most recent first.
func (r *EngagementRepository) LikedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("post_id DESC").
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *EngagementRepository) SavedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.PostSave{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("post_id DESC").
		Pluck("post_id", &ids).Error
	return ids, err
}
