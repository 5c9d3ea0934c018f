package domain

import (
	"context"
	"errors"
	"time"
)

// RecordUsageRequest upserts the ledger row for one (family, project) pair.
// Count replaces the stored value, exports carry absolute snapshot counts.
type RecordUsageRequest struct {
	FamilyID   string    `json:"family_id"`
	ProjectID  string    `json:"project_id"`
	Count      int64     `json:"count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// RecordTypeUsageRequest is the family-type variant of RecordUsageRequest.
type RecordTypeUsageRequest struct {
	FamilyTypeID string    `json:"family_type_id"`
	ProjectID    string    `json:"project_id"`
	Count        int64     `json:"count"`
	LastUsedAt   time.Time `json:"last_used_at"`
}

// ProjectUsage is one row of the per-project breakdown.
type ProjectUsage struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	UsedCount   int64  `json:"usedCount"`
}

// CityUsage is one row of the per-city breakdown.
type CityUsage struct {
	CityName   string `json:"cityName"`
	UsageCount int64  `json:"usageCount"`
}

// TypeUsageSnapshot is one family-type counter inside an import payload.
type TypeUsageSnapshot struct {
	TypeID     string    `json:"typeId"`
	TypeName   string    `json:"typeName"`
	Count      int64     `json:"count"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// FamilyUsageSnapshot is one family counter inside an import payload.
type FamilyUsageSnapshot struct {
	FamilyID   string              `json:"familyId"`
	FamilyName string              `json:"familyName"`
	Count      int64               `json:"count"`
	LastUsedAt time.Time           `json:"lastUsedAt"`
	Types      []TypeUsageSnapshot `json:"types"`
}

// ImportSnapshotRequest carries a full per-project usage export.
type ImportSnapshotRequest struct {
	ProjectID   string                `json:"projectId"`
	ProjectName string                `json:"projectName"`
	CityName    *string               `json:"cityName"`
	Location    map[string]any        `json:"location"`
	HarvestedAt time.Time             `json:"harvestedAt"`
	Families    []FamilyUsageSnapshot `json:"families"`
}

// ImportSummary reports what an import snapshot touched.
type ImportSummary struct {
	ProjectID        string `json:"projectId"`
	FamiliesImported int    `json:"familiesImported"`
	RecordsWritten   int64  `json:"recordsWritten"`
}

type Service interface {
	// RecordUsage upserts the counter for an existing family/project pair.
	RecordUsage(ctx context.Context, req RecordUsageRequest) (*UsageRecord, error)
	// RecordTypeUsage upserts the counter for an existing family-type/project pair.
	RecordTypeUsage(ctx context.Context, req RecordTypeUsageRequest) (*TypeUsageRecord, error)
	// ImportSnapshot ingests a whole project export, creating the project and
	// unknown families on the fly before upserting the counters.
	ImportSnapshot(ctx context.Context, req ImportSnapshotRequest) (ImportSummary, error)

	TotalForFamily(ctx context.Context, familyID string) (int64, error)
	ByProject(ctx context.Context, familyID string) ([]ProjectUsage, error)
	ByCity(ctx context.Context, familyID string) ([]CityUsage, error)
	// InWindow sums usage counts whose last_used is at or after since.
	InWindow(ctx context.Context, familyID string, since time.Time) (int64, error)
	// LastUsedAt returns the most recent last_used, nil when no rows exist.
	LastUsedAt(ctx context.Context, familyID string) (*time.Time, error)
	// TotalsForTypes returns per-type usage sums, absent types map to zero.
	TotalsForTypes(ctx context.Context, typeIDs []string) (map[string]int64, error)
}

var (
	ErrInvalidFamily     = errors.New("invalid_family")
	ErrInvalidFamilyType = errors.New("invalid_family_type")
	ErrInvalidProject    = errors.New("invalid_project")
	ErrInvalidCount      = errors.New("invalid_count")
	ErrInvalidSnapshot   = errors.New("invalid_snapshot")
	ErrFamilyNotFound    = errors.New("family_not_found")
	ErrTypeNotFound      = errors.New("family_type_not_found")
	ErrProjectNotFound   = errors.New("project_not_found")
)
