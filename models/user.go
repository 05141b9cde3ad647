// File: /models/user.go
package models

import (
	"strings"
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	Username  *string   `json:"username" gorm:"uniqueIndex;size:50"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password  string    `json:"-" gorm:"not null;size:255"`
	Avatar    *string   `json:"avatar" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Posts []Post `json:"-" gorm:"foreignKey:UserID"`
}

// AvatarKind tells how a user's avatar reference must be resolved.
type AvatarKind string

const (
	// AvatarStored is a path inside the file storage.
	AvatarStored AvatarKind = "stored"
	// AvatarInline is a self-contained data URI.
	AvatarInline AvatarKind = "inline"
)

// AvatarRef is the decoded form of the users.avatar column.
type AvatarRef struct {
	Kind  AvatarKind `json:"kind"`
	Value string     `json:"value"`
}

// ParseAvatarRef decodes a raw avatar column value. Nil or blank values yield nil.
func ParseAvatarRef(raw *string) *AvatarRef {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	if strings.HasPrefix(*raw, "data:") {
		return &AvatarRef{Kind: AvatarInline, Value: *raw}
	}
	return &AvatarRef{Kind: AvatarStored, Value: *raw}
}

// AvatarRef returns the decoded avatar reference of the user.
func (u *User) AvatarRef() *AvatarRef {
	return ParseAvatarRef(u.Avatar)
}

// StoredAvatarPath returns the storage path when the avatar is a stored file.
func (u *User) StoredAvatarPath() (string, bool) {
	ref := u.AvatarRef()
	if ref == nil || ref.Kind != AvatarStored {
		return "", false
	}
	return ref.Value, true
}

// PersonalAccessToken backs every issued bearer token. Deleting the row revokes the token.
type PersonalAccessToken struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"not null;index"`
	TokenID    string     `json:"-" gorm:"uniqueIndex;not null;size:64"`
	Name       string     `json:"name" gorm:"size:100"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
