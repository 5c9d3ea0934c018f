// Package domain contains persistence models for the usage ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord stores the absolute placement count of a family within a
// project, as carried by the latest ingestion snapshot.
type UsageRecord struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	FamilyID   string       `gorm:"type:text;not null;uniqueIndex:uq_usage_family_project"`
	ProjectID  string       `gorm:"type:text;not null;uniqueIndex:uq_usage_family_project"`
	UsageCount int64        `gorm:"not null"`
	LastUsed   time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }

// TypeUsageRecord tracks the same counter per family type.
type TypeUsageRecord struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	FamilyTypeID string       `gorm:"type:text;not null;uniqueIndex:uq_type_usage_type_project"`
	ProjectID    string       `gorm:"type:text;not null;uniqueIndex:uq_type_usage_type_project"`
	UsageCount   int64        `gorm:"not null"`
	LastUsed     time.Time    `gorm:"not null"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TypeUsageRecord) TableName() string { return "type_usage_records" }
