// Package domain contains persistence models for playlist composition.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Playlist is a user-curated, ordered collection of families.
type Playlist struct {
	ID              string    `gorm:"primaryKey;type:text" json:"id"`
	Name            string    `gorm:"type:text;not null" json:"name"`
	UserID          string    `gorm:"type:text;not null;index" json:"userId"`
	PreviewImageKey *string   `gorm:"type:text" json:"previewImageKey,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Playlist) TableName() string { return "playlists" }

// PlaylistFamily is one membership edge. A family appears at most once per
// playlist, SortOrder defines the display sequence and need not be contiguous.
type PlaylistFamily struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PlaylistID string       `gorm:"type:text;not null;uniqueIndex:uq_playlist_family"`
	FamilyID   string       `gorm:"type:text;not null;uniqueIndex:uq_playlist_family"`
	SortOrder  int          `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PlaylistFamily) TableName() string { return "playlist_families" }
