package repositories

import (
	"context"

	"gorm.io/gorm"

	"inkpost-api/models"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// taggedPosts loads the posts of a tag with the same like count projection as post reads.
func taggedPosts(db *gorm.DB) *gorm.DB {
	return db.Select(likesCountSelect).Order("posts.created_at DESC").Order("posts.id DESC")
}

func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	return r.db.WithContext(ctx).Omit("User", "Posts").Create(tag).Error
}

func (r *TagRepository) FindByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Posts", taggedPosts).
		Preload("Posts.User").
		First(&tag, id).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// List returns every tag with its owner and associated posts (and their authors).
func (r *TagRepository) List(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Posts", taggedPosts).
		Preload("Posts.User").
		Order("tags.created_at DESC").Order("tags.id DESC").
		Find(&tags).Error
	return tags, err
}

func (r *TagRepository) Update(ctx context.Context, tagID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Tag{}).Where("id = ?", tagID).Updates(fields).Error
}

// Delete removes the tag and its post associations. The posts themselves survive.
func (r *TagRepository) Delete(ctx context.Context, tagID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", tagID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Tag{}, tagID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountExisting returns how many of ids name an existing tag.
func (r *TagRepository) CountExisting(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tag{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}
