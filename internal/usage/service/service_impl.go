package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revitfy/revitfy/internal/clock"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	obsmetrics "github.com/revitfy/revitfy/internal/observability/metrics"
	projectdomain "github.com/revitfy/revitfy/internal/project/domain"
	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"github.com/revitfy/revitfy/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ProjectSvc projectdomain.Service
	Ledger     usagedomain.LedgerRepository
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	projectSvc projectdomain.Service
	ledger     usagedomain.LedgerRepository
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("usage.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		projectSvc: p.ProjectSvc,
		ledger:     p.Ledger,
		metrics:    p.Metrics,
	}
}

func (s *Service) RecordUsage(ctx context.Context, req usagedomain.RecordUsageRequest) (*usagedomain.UsageRecord, error) {
	familyID := strings.TrimSpace(req.FamilyID)
	if familyID == "" {
		return nil, usagedomain.ErrInvalidFamily
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, usagedomain.ErrInvalidProject
	}
	if req.Count < 0 {
		return nil, usagedomain.ErrInvalidCount
	}

	exists, err := s.rowExists(ctx, "families", familyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, usagedomain.ErrFamilyNotFound
	}
	exists, err = s.rowExists(ctx, "projects", projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, usagedomain.ErrProjectNotFound
	}

	now := s.clock.Now()
	lastUsed := req.LastUsedAt
	if lastUsed.IsZero() {
		lastUsed = now
	}

	record := &usagedomain.UsageRecord{
		ID:         s.genID.Generate(),
		FamilyID:   familyID,
		ProjectID:  projectID,
		UsageCount: req.Count,
		LastUsed:   lastUsed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.upsertUsage(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) RecordTypeUsage(ctx context.Context, req usagedomain.RecordTypeUsageRequest) (*usagedomain.TypeUsageRecord, error) {
	typeID := strings.TrimSpace(req.FamilyTypeID)
	if typeID == "" {
		return nil, usagedomain.ErrInvalidFamilyType
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		return nil, usagedomain.ErrInvalidProject
	}
	if req.Count < 0 {
		return nil, usagedomain.ErrInvalidCount
	}

	exists, err := s.rowExists(ctx, "family_types", typeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, usagedomain.ErrTypeNotFound
	}
	exists, err = s.rowExists(ctx, "projects", projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, usagedomain.ErrProjectNotFound
	}

	now := s.clock.Now()
	lastUsed := req.LastUsedAt
	if lastUsed.IsZero() {
		lastUsed = now
	}

	record := &usagedomain.TypeUsageRecord{
		ID:           s.genID.Generate(),
		FamilyTypeID: typeID,
		ProjectID:    projectID,
		UsageCount:   req.Count,
		LastUsed:     lastUsed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.upsertTypeUsage(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ImportSnapshot mirrors the harvested-export ingestion path: the project is
// upserted, unknown families and types are created on the fly, and every
// counter is replaced with the snapshot value (last writer wins).
func (s *Service) ImportSnapshot(ctx context.Context, req usagedomain.ImportSnapshotRequest) (usagedomain.ImportSummary, error) {
	if strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.ProjectName) == "" {
		return usagedomain.ImportSummary{}, usagedomain.ErrInvalidSnapshot
	}
	if len(req.Families) == 0 {
		return usagedomain.ImportSummary{}, usagedomain.ErrInvalidSnapshot
	}

	project, err := s.projectSvc.Ensure(ctx, projectdomain.EnsureProjectRequest{
		ID:          req.ProjectID,
		Name:        req.ProjectName,
		CityName:    req.CityName,
		Location:    req.Location,
		HarvestedAt: req.HarvestedAt,
	})
	if err != nil {
		return usagedomain.ImportSummary{}, err
	}

	now := s.clock.Now()
	summary := usagedomain.ImportSummary{ProjectID: project.ID}

	for _, fam := range req.Families {
		name := strings.TrimSpace(fam.FamilyName)
		if name == "" {
			return usagedomain.ImportSummary{}, usagedomain.ErrInvalidSnapshot
		}
		familyID := strings.TrimSpace(fam.FamilyID)
		if familyID == "" {
			familyID = familydomain.GenerateFamilyID(name)
		}
		if err := s.ensureFamily(ctx, familyID, name, now); err != nil {
			return usagedomain.ImportSummary{}, err
		}

		lastUsed := fam.LastUsedAt
		if lastUsed.IsZero() {
			lastUsed = now
		}
		record := &usagedomain.UsageRecord{
			ID:         s.genID.Generate(),
			FamilyID:   familyID,
			ProjectID:  project.ID,
			UsageCount: fam.Count,
			LastUsed:   lastUsed,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.upsertUsage(ctx, record); err != nil {
			return usagedomain.ImportSummary{}, err
		}
		summary.FamiliesImported++
		summary.RecordsWritten++

		for _, typ := range fam.Types {
			typeName := strings.TrimSpace(typ.TypeName)
			if typeName == "" {
				continue
			}
			typeID := strings.TrimSpace(typ.TypeID)
			if typeID == "" {
				typeID = familyID + "_" + familydomain.GenerateFamilyID(typeName)
			}
			if err := s.ensureFamilyType(ctx, typeID, familyID, typeName, now); err != nil {
				return usagedomain.ImportSummary{}, err
			}

			typeLastUsed := typ.LastUsedAt
			if typeLastUsed.IsZero() {
				typeLastUsed = lastUsed
			}
			typeRecord := &usagedomain.TypeUsageRecord{
				ID:           s.genID.Generate(),
				FamilyTypeID: typeID,
				ProjectID:    project.ID,
				UsageCount:   typ.Count,
				LastUsed:     typeLastUsed,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.upsertTypeUsage(ctx, typeRecord); err != nil {
				return usagedomain.ImportSummary{}, err
			}
			summary.RecordsWritten++
		}
	}

	if s.metrics != nil {
		s.metrics.RecordUsageImport(ctx, project.Name, summary.RecordsWritten)
	}
	s.log.Info("usage snapshot imported",
		zap.String("project_id", project.ID),
		zap.Int("families", summary.FamiliesImported),
		zap.Int64("records", summary.RecordsWritten),
	)
	return summary, nil
}

func (s *Service) TotalForFamily(ctx context.Context, familyID string) (int64, error) {
	return s.ledger.TotalForFamily(ctx, s.db, familyID)
}

func (s *Service) ByProject(ctx context.Context, familyID string) ([]usagedomain.ProjectUsage, error) {
	return s.ledger.ByProject(ctx, s.db, familyID, usagedomain.BreakdownLimit)
}

func (s *Service) ByCity(ctx context.Context, familyID string) ([]usagedomain.CityUsage, error) {
	return s.ledger.ByCity(ctx, s.db, familyID, usagedomain.BreakdownLimit)
}

func (s *Service) InWindow(ctx context.Context, familyID string, since time.Time) (int64, error) {
	return s.ledger.SumSince(ctx, s.db, familyID, since)
}

func (s *Service) LastUsedAt(ctx context.Context, familyID string) (*time.Time, error) {
	return s.ledger.MaxLastUsed(ctx, s.db, familyID)
}

func (s *Service) TotalsForTypes(ctx context.Context, typeIDs []string) (map[string]int64, error) {
	return s.ledger.TotalsForTypes(ctx, s.db, typeIDs)
}

func (s *Service) upsertUsage(ctx context.Context, record *usagedomain.UsageRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "family_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"usage_count", "last_used", "updated_at",
		}),
	}).Create(record).Error
}

func (s *Service) upsertTypeUsage(ctx context.Context, record *usagedomain.TypeUsageRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "family_type_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"usage_count", "last_used", "updated_at",
		}),
	}).Create(record).Error
}

func (s *Service) ensureFamily(ctx context.Context, id, name string, now time.Time) error {
	exists, err := s.rowExists(ctx, "families", id)
	if err != nil || exists {
		return err
	}
	family := &familydomain.Family{
		ID:        id,
		Name:      name,
		Category:  familydomain.InferCategory(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Create(family).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		// concurrent import created it first
		return nil
	}
	return err
}

func (s *Service) ensureFamilyType(ctx context.Context, id, familyID, name string, now time.Time) error {
	exists, err := s.rowExists(ctx, "family_types", id)
	if err != nil || exists {
		return err
	}
	familyType := &familydomain.FamilyType{
		ID:        id,
		FamilyID:  familyID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Create(familyType).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func (s *Service) rowExists(ctx context.Context, table, id string) (bool, error) {
	if s.db == nil {
		return false, errors.New("missing_db")
	}
	var exists bool
	err := s.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`,
		id,
	).Scan(&exists).Error
	return exists, err
}
