// Package domain contains persistence models for the reaction ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReactionRecord stores one user's like/dislike state toward an entity.
// At most one row may exist per (entity_type, entity_id, user_id).
type ReactionRecord struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	EntityType string       `gorm:"type:text;not null;uniqueIndex:uq_reaction_entity_user"`
	EntityID   string       `gorm:"type:text;not null;uniqueIndex:uq_reaction_entity_user"`
	UserID     string       `gorm:"type:text;not null;uniqueIndex:uq_reaction_entity_user"`
	Type       string       `gorm:"type:text;not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ReactionRecord) TableName() string { return "reaction_records" }
