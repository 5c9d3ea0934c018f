package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// BreakdownLimit caps the per-project and per-city breakdowns.
const BreakdownLimit = 10

// LedgerRepository runs the grouped aggregate queries over the ledger tables.
type LedgerRepository interface {
	TotalForFamily(ctx context.Context, db *gorm.DB, familyID string) (int64, error)
	ByProject(ctx context.Context, db *gorm.DB, familyID string, limit int) ([]ProjectUsage, error)
	ByCity(ctx context.Context, db *gorm.DB, familyID string, limit int) ([]CityUsage, error)
	SumSince(ctx context.Context, db *gorm.DB, familyID string, since time.Time) (int64, error)
	MaxLastUsed(ctx context.Context, db *gorm.DB, familyID string) (*time.Time, error)
	TotalsForTypes(ctx context.Context, db *gorm.DB, typeIDs []string) (map[string]int64, error)
}
