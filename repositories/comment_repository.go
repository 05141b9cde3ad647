package repositories

import (
	"context"

	"gorm.io/gorm"

	"inkpost-api/models"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Omit("User", "Post").Create(comment).Error
}

func (r *CommentRepository) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns the comments of a post, newest first.
func (r *CommentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) ListAll(ctx context.Context) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").Order("id DESC").
		Find(&comments).Error
	return comments, err
}

// UpdateBody rewrites the body only. The owning user and post never change.
func (r *CommentRepository) UpdateBody(ctx context.Context, id uint, body string) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("body", body).Error
}

func (r *CommentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
