package models

import "time"

// Tag is a post category owned by the user who created it.
type Tag struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           uint      `json:"user_id" gorm:"not null;index"`
	TagName          string    `json:"tag_name" gorm:"not null;size:255"`
	ShortDescription *string   `json:"short_description" gorm:"size:500"`
	Image            *string   `json:"image" gorm:"size:255"`
	ImageURL         string    `json:"image_url,omitempty" gorm:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	User  *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Posts []Post `json:"posts,omitempty" gorm:"many2many:post_tag"`
}
