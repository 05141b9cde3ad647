package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"inkpost-api/models"
)

// ErrUnknownTag is returned when a tag id passed for association does not exist.
var ErrUnknownTag = errors.New("unknown tag")

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// withDetails eager-loads the owner and tags and selects the computed like count.
func (r *PostRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).
		Select(likesCountSelect).
		Preload("User").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id ASC") })
}

// Create inserts post and associates tagIDs in one transaction.
func (r *PostRepository) Create(ctx context.Context, post *models.Post, tagIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Tags").Create(post).Error; err != nil {
			return err
		}
		return replaceTags(tx, post.ID, tagIDs)
	})
}

func (r *PostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).Where("posts.id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := r.withDetails(r.db.WithContext(ctx)).Where("posts.slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns every post, newest first.
func (r *PostRepository) List(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.withDetails(r.db.WithContext(ctx)).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Find(&posts).Error
	return posts, err
}

func (r *PostRepository) ListByUser(ctx context.Context, userID uint) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.withDetails(r.db.WithContext(ctx)).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Find(&posts).Error
	return posts, err
}

// ListSavedBy returns the posts userID bookmarked, most recently saved first.
func (r *PostRepository) ListSavedBy(ctx context.Context, userID uint) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.withDetails(r.db.WithContext(ctx)).
		Joins("JOIN post_user ON post_user.post_id = posts.id").
		Where("post_user.user_id = ?", userID).
		Order("post_user.created_at DESC").Order("posts.id DESC").
		Find(&posts).Error
	return posts, err
}

func (r *PostRepository) SlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update writes fields (column -> value) and, when replaceTagSet is true, replaces the tag
// set with tagIDs. Both happen in one transaction. Callers load the post first: MySQL reports
// zero affected rows for a no-op write, so a missing row is not detected here.
func (r *PostRepository) Update(ctx context.Context, postID uint, fields map[string]interface{}, tagIDs []uint, replaceTagSet bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).Updates(fields).Error; err != nil {
				return err
			}
		}
		if replaceTagSet {
			return replaceTags(tx, postID, tagIDs)
		}
		return nil
	})
}

// ReplaceTagAssociations swaps the whole tag set of a post. Unknown tag ids reject the
// operation without touching existing associations.
func (r *PostRepository) ReplaceTagAssociations(ctx context.Context, postID uint, tagIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceTags(tx, postID, tagIDs)
	})
}

func replaceTags(tx *gorm.DB, postID uint, tagIDs []uint) error {
	if len(tagIDs) > 0 {
		var found int64
		if err := tx.Model(&models.Tag{}).Where("id IN ?", tagIDs).Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(tagIDs)) {
			return ErrUnknownTag
		}
	}

	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	links := make([]models.PostTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		links = append(links, models.PostTag{PostID: postID, TagID: id})
	}
	return tx.Create(&links).Error
}

// Delete removes the post and every row that references it.
func (r *PostRepository) Delete(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&models.PostTag{}, &models.PostLike{}, &models.PostSave{}, &models.Comment{}} {
			if err := tx.Where("post_id = ?", postID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Post{}, postID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PostRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
