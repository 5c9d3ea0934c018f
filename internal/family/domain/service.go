package domain

import (
	"context"
	"errors"

	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"github.com/revitfy/revitfy/pkg/db/pagination"
)

// CreateFamilyRequest creates a catalog entry. ID is derived from the name
// when omitted, Category is inferred from the name when omitted.
type CreateFamilyRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	FileKey  *string `json:"fileKey"`
}

// UpdateFamilyRequest patches a catalog entry. Nil fields are left alone.
type UpdateFamilyRequest struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	FileKey  *string `json:"fileKey"`
}

// ListFamiliesRequest filters the catalog listing.
type ListFamiliesRequest struct {
	Category string `form:"category"`
	pagination.Pagination
}

// ListFamiliesResponse is a page of catalog entries.
type ListFamiliesResponse struct {
	pagination.PageInfo
	Families []Family `json:"families"`
}

// TypeUsage is one family-type entry of the detail view.
type TypeUsage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UsageCount int64  `json:"usageCount"`
}

// RelatedPeriods holds the three fixed calendar-window rollups.
type RelatedPeriods struct {
	LastMonth   int64 `json:"lastMonth"`
	LastQuarter int64 `json:"lastQuarter"`
	LastYear    int64 `json:"lastYear"`
}

// UsageStatistics groups the derived breakdowns of the detail view.
type UsageStatistics struct {
	RelatedProjects  []usagedomain.ProjectUsage `json:"relatedProjects"`
	RelatedLocations []usagedomain.CityUsage    `json:"relatedLocations"`
	RelatedPeriods   RelatedPeriods             `json:"relatedPeriods"`
}

// FamilyDetail is the fully aggregated read model for one family.
// Every field is recomputed from the ledgers on each call.
type FamilyDetail struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	PreviewImageKey *string         `json:"previewImageKey,omitempty"`
	UsageCount      int64           `json:"usageCount"`
	LikesCount      int64           `json:"likesCount"`
	DislikesCount   int64           `json:"dislikesCount"`
	LastUsed        string          `json:"lastUsed"`
	Types           []TypeUsage     `json:"types"`
	UsageStatistics UsageStatistics `json:"usageStatistics"`
}

type Service interface {
	Create(ctx context.Context, req CreateFamilyRequest) (*Family, error)
	Get(ctx context.Context, id string) (*Family, error)
	List(ctx context.Context, req ListFamiliesRequest) (ListFamiliesResponse, error)
	Update(ctx context.Context, id string, req UpdateFamilyRequest) (*Family, error)
	// Delete removes the family together with its types, ledger rows, and
	// playlist memberships in one transaction.
	Delete(ctx context.Context, id string) error
	// GetDetail assembles the aggregated detail view, recomputing every
	// statistic from the usage and reaction ledgers at call time.
	GetDetail(ctx context.Context, id string) (*FamilyDetail, error)
	UpdatePreviewImage(ctx context.Context, id, storageKey string) (*Family, error)
}

var (
	ErrInvalidFamilyID   = errors.New("invalid_family_id")
	ErrInvalidFamilyName = errors.New("invalid_family_name")
	ErrInvalidStorageKey = errors.New("invalid_storage_key")
	ErrFamilyNotFound    = errors.New("family_not_found")
	ErrFamilyExists      = errors.New("family_exists")
)
