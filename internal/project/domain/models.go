// Package domain contains persistence models for harvested Revit projects.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a Revit project whose usage exports are ingested.
// Rows are written by the ingestion path and read-only everywhere else.
type Project struct {
	ID          string            `gorm:"primaryKey;type:text" json:"id"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	CityName    *string           `gorm:"type:text" json:"cityName,omitempty"`
	Location    datatypes.JSONMap `gorm:"type:jsonb" json:"location,omitempty"`
	HarvestedAt *time.Time        `json:"harvestedAt,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }
