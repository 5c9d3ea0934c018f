package repository

import (
	"context"
	"time"

	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"gorm.io/gorm"
)

type ledgerRepo struct{}

func ProvideLedger() usagedomain.LedgerRepository {
	return &ledgerRepo{}
}

func (r *ledgerRepo) TotalForFamily(ctx context.Context, db *gorm.DB, familyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(usage_count), 0)
		 FROM usage_records
		 WHERE family_id = ?`,
		familyID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ledgerRepo) ByProject(ctx context.Context, db *gorm.DB, familyID string, limit int) ([]usagedomain.ProjectUsage, error) {
	if limit <= 0 {
		limit = usagedomain.BreakdownLimit
	}
	var rows []usagedomain.ProjectUsage
	err := db.WithContext(ctx).Raw(
		`SELECT ur.project_id AS project_id,
		        p.name AS project_name,
		        SUM(ur.usage_count) AS used_count
		 FROM usage_records ur
		 JOIN projects p ON p.id = ur.project_id
		 WHERE ur.family_id = ?
		 GROUP BY ur.project_id, p.name
		 ORDER BY used_count DESC, ur.project_id ASC
		 LIMIT ?`,
		familyID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ledgerRepo) ByCity(ctx context.Context, db *gorm.DB, familyID string, limit int) ([]usagedomain.CityUsage, error) {
	if limit <= 0 {
		limit = usagedomain.BreakdownLimit
	}
	var rows []usagedomain.CityUsage
	err := db.WithContext(ctx).Raw(
		`SELECT p.city_name AS city_name,
		        SUM(ur.usage_count) AS usage_count
		 FROM usage_records ur
		 JOIN projects p ON p.id = ur.project_id
		 WHERE ur.family_id = ? AND p.city_name IS NOT NULL
		 GROUP BY p.city_name
		 ORDER BY usage_count DESC, p.city_name ASC
		 LIMIT ?`,
		familyID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ledgerRepo) SumSince(ctx context.Context, db *gorm.DB, familyID string, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(usage_count), 0)
		 FROM usage_records
		 WHERE family_id = ? AND last_used >= ?`,
		familyID,
		since,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ledgerRepo) MaxLastUsed(ctx context.Context, db *gorm.DB, familyID string) (*time.Time, error) {
	var row struct {
		LastUsed *time.Time
	}
	err := db.WithContext(ctx).Raw(
		`SELECT MAX(last_used) AS last_used
		 FROM usage_records
		 WHERE family_id = ?`,
		familyID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.LastUsed, nil
}

func (r *ledgerRepo) TotalsForTypes(ctx context.Context, db *gorm.DB, typeIDs []string) (map[string]int64, error) {
	totals := make(map[string]int64, len(typeIDs))
	if len(typeIDs) == 0 {
		return totals, nil
	}
	var rows []struct {
		FamilyTypeID string
		Total        int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT family_type_id, COALESCE(SUM(usage_count), 0) AS total
		 FROM type_usage_records
		 WHERE family_type_id IN ?
		 GROUP BY family_type_id`,
		typeIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals[row.FamilyTypeID] = row.Total
	}
	return totals, nil
}
