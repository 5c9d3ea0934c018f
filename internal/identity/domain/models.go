// Package domain contains persistence models for the identity capability.
package domain

import "time"

// User is an opaque account record. Reactions and playlists reference its ID.
type User struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string `gorm:"not null"`
	Email       string `gorm:"type:text;not null;uniqueIndex:uq_users_email"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session maps an opaque bearer token to a user until it expires.
type Session struct {
	Token     string `gorm:"primaryKey"`
	UserID    string `gorm:"type:text;not null;index"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
