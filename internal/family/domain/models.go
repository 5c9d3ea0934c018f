// Package domain contains persistence models for the family catalog.
package domain

import (
	"regexp"
	"strings"
	"time"
)

// Family is a reusable building-component definition (door, column, fixture).
type Family struct {
	ID              string    `gorm:"primaryKey;type:text" json:"id"`
	Name            string    `gorm:"type:text;not null" json:"name"`
	Category        string    `gorm:"type:text;not null" json:"category"`
	FileKey         *string   `gorm:"type:text" json:"fileKey,omitempty"`
	PreviewImageKey *string   `gorm:"type:text" json:"previewImageKey,omitempty"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (Family) TableName() string { return "families" }

// FamilyType is a named variant/size of a family.
type FamilyType struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	FamilyID  string    `gorm:"type:text;not null;index" json:"familyId"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (FamilyType) TableName() string { return "family_types" }

var categoryTokens = []struct {
	token    string
	category string
}{
	{"DOR", "Doors"},
	{"WIN", "Windows"},
	{"WAL", "Walls"},
	{"FLO", "Floors"},
	{"ROO", "Roofs"},
	{"FUR", "Furniture"},
	{"MEP", "MEP"},
	{"STR", "Structural"},
}

// InferCategory derives a category from a conventional family name,
// e.g. PWA_DOR_SingleSwing resolves to Doors.
func InferCategory(familyName string) string {
	upper := strings.ToUpper(familyName)
	for _, entry := range categoryTokens {
		if strings.Contains(upper, "_"+entry.token+"_") || strings.HasPrefix(upper, entry.token+"_") {
			return entry.category
		}
	}
	return "Other"
}

var familyIDPattern = regexp.MustCompile(`[^a-z0-9]`)

// GenerateFamilyID builds a URL-friendly identifier from a family name.
func GenerateFamilyID(familyName string) string {
	return "fam_" + familyIDPattern.ReplaceAllString(strings.ToLower(familyName), "_")
}
