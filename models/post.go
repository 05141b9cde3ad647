// File: /models/post.go
package models

import (
	"time"
)

type Post struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           uint      `json:"user_id" gorm:"not null;index"`
	Title            string    `json:"title" gorm:"not null;size:255"`
	Slug             string    `json:"slug" gorm:"uniqueIndex;not null;size:255"`
	ShortDescription *string   `json:"short_description" gorm:"size:500"`
	Content          string    `json:"content" gorm:"type:text"`
	FeatureImage     *string   `json:"feature_image" gorm:"size:255"`
	FeatureImageURL  string    `json:"feature_image_url,omitempty" gorm:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// LikesCount is never stored; it is selected from post_user_likes on every read.
	LikesCount int64 `json:"likes_count" gorm:"->;-:migration"`

	User User  `json:"user" gorm:"foreignKey:UserID"`
	Tags []Tag `json:"tags" gorm:"many2many:post_tag"`
}

// PostTag is the post_tag join row.
type PostTag struct {
	PostID    uint      `json:"post_id" gorm:"primaryKey;autoIncrement:false"`
	TagID     uint      `json:"tag_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Post *Post `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Tag  *Tag  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (PostTag) TableName() string { return "post_tag" }

// PostLike records that a user likes a post. The composite key keeps the pair unique.
type PostLike struct {
	PostID    uint      `json:"post_id" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Post *Post `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (PostLike) TableName() string { return "post_user_likes" }

// PostSave represents a bookmarked post by a user
type PostSave struct {
	PostID    uint      `json:"post_id" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Post *Post `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (PostSave) TableName() string { return "post_user" }

// LikeState is returned by like/unlike.
type LikeState struct {
	PostID     uint  `json:"post_id"`
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// SaveState is returned by save/unsave.
type SaveState struct {
	PostID uint `json:"post_id"`
	Saved  bool `json:"saved"`
}
