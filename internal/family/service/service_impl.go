package service

import (
	"context"
	"strings"

	"github.com/revitfy/revitfy/internal/clock"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	obsmetrics "github.com/revitfy/revitfy/internal/observability/metrics"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	"github.com/revitfy/revitfy/internal/relativetime"
	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"github.com/revitfy/revitfy/pkg/db"
	"github.com/revitfy/revitfy/pkg/db/option"
	"github.com/revitfy/revitfy/pkg/db/pagination"
	"github.com/revitfy/revitfy/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	UsageSvc    usagedomain.Service
	ReactionSvc reactiondomain.Service
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	usageSvc    usagedomain.Service
	reactionSvc reactiondomain.Service
	metrics     *obsmetrics.Metrics

	familyRepo repository.Repository[familydomain.Family]
	typeRepo   repository.Repository[familydomain.FamilyType]
}

func NewService(p ServiceParam) familydomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("family.service"),
		clock:       p.Clock,
		usageSvc:    p.UsageSvc,
		reactionSvc: p.ReactionSvc,
		metrics:     p.Metrics,
		familyRepo:  repository.ProvideStore[familydomain.Family](p.DB),
		typeRepo:    repository.ProvideStore[familydomain.FamilyType](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req familydomain.CreateFamilyRequest) (*familydomain.Family, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, familydomain.ErrInvalidFamilyName
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = familydomain.GenerateFamilyID(name)
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = familydomain.InferCategory(name)
	}

	now := s.clock.Now()
	record := &familydomain.Family{
		ID:        id,
		Name:      name,
		Category:  category,
		FileKey:   req.FileKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.familyRepo.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, familydomain.ErrFamilyExists
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id string) (*familydomain.Family, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, familydomain.ErrInvalidFamilyID
	}
	record, err := s.familyRepo.FindOne(ctx, &familydomain.Family{ID: id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, familydomain.ErrFamilyNotFound
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, req familydomain.ListFamiliesRequest) (familydomain.ListFamiliesResponse, error) {
	req.Pagination = req.Pagination.Normalize()

	filter := &familydomain.Family{}
	if category := strings.TrimSpace(req.Category); category != "" {
		filter.Category = category
	}

	total, err := s.familyRepo.Count(ctx, filter)
	if err != nil {
		return familydomain.ListFamiliesResponse{}, err
	}

	items, err := s.familyRepo.Find(ctx, filter,
		option.WithOrder("name ASC"),
		option.WithLimit(req.Limit),
		option.WithOffset(req.Offset),
	)
	if err != nil {
		return familydomain.ListFamiliesResponse{}, err
	}

	families := make([]familydomain.Family, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		families = append(families, *item)
	}

	return familydomain.ListFamiliesResponse{
		PageInfo: pagination.PageInfo{Total: total, Limit: req.Limit, Offset: req.Offset},
		Families: families,
	}, nil
}

func (s *Service) Update(ctx context.Context, id string, req familydomain.UpdateFamilyRequest) (*familydomain.Family, error) {
	family, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, familydomain.ErrInvalidFamilyName
		}
		family.Name = name
	}
	if req.Category != nil {
		if category := strings.TrimSpace(*req.Category); category != "" {
			family.Category = category
		}
	}
	if req.FileKey != nil {
		family.FileKey = req.FileKey
	}

	family.UpdatedAt = s.clock.Now()
	if err := s.familyRepo.Update(ctx, family.ID, family); err != nil {
		return nil, err
	}
	return family, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	family, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		statements := []string{
			`DELETE FROM type_usage_records WHERE family_type_id IN (SELECT id FROM family_types WHERE family_id = ?)`,
			`DELETE FROM family_types WHERE family_id = ?`,
			`DELETE FROM usage_records WHERE family_id = ?`,
			`DELETE FROM reaction_records WHERE entity_type = 'family' AND entity_id = ?`,
			`DELETE FROM playlist_families WHERE family_id = ?`,
			`DELETE FROM families WHERE id = ?`,
		}
		for _, statement := range statements {
			if err := tx.Exec(statement, family.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDetail assembles the family read model. Every statistic is recomputed
// from the ledgers on each call, the three period rollups are anchored to
// "now" at call time and are therefore time-sensitive by contract.
func (s *Service) GetDetail(ctx context.Context, id string) (*familydomain.FamilyDetail, error) {
	family, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	types, err := s.typeRepo.Find(ctx, &familydomain.FamilyType{FamilyID: family.ID})
	if err != nil {
		return nil, err
	}
	typeIDs := make([]string, 0, len(types))
	for _, typ := range types {
		if typ != nil {
			typeIDs = append(typeIDs, typ.ID)
		}
	}
	typeTotals, err := s.usageSvc.TotalsForTypes(ctx, typeIDs)
	if err != nil {
		return nil, err
	}
	typeUsages := make([]familydomain.TypeUsage, 0, len(types))
	for _, typ := range types {
		if typ == nil {
			continue
		}
		typeUsages = append(typeUsages, familydomain.TypeUsage{
			ID:         typ.ID,
			Name:       typ.Name,
			UsageCount: typeTotals[typ.ID],
		})
	}

	// usageCount is the true total across all projects, the relatedProjects
	// breakdown below is capped at ten rows.
	usageCount, err := s.usageSvc.TotalForFamily(ctx, family.ID)
	if err != nil {
		return nil, err
	}

	counts, err := s.reactionSvc.Counts(ctx, reactiondomain.EntityFamily, family.ID)
	if err != nil {
		return nil, err
	}

	lastUsedAt, err := s.usageSvc.LastUsedAt(ctx, family.ID)
	if err != nil {
		return nil, err
	}

	byProject, err := s.usageSvc.ByProject(ctx, family.ID)
	if err != nil {
		return nil, err
	}
	byCity, err := s.usageSvc.ByCity(ctx, family.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	lastMonth, err := s.usageSvc.InWindow(ctx, family.ID, now.AddDate(0, -1, 0))
	if err != nil {
		return nil, err
	}
	lastQuarter, err := s.usageSvc.InWindow(ctx, family.ID, now.AddDate(0, -3, 0))
	if err != nil {
		return nil, err
	}
	lastYear, err := s.usageSvc.InWindow(ctx, family.ID, now.AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordFamilyDetail(ctx)
	}

	return &familydomain.FamilyDetail{
		ID:              family.ID,
		Name:            family.Name,
		Category:        family.Category,
		PreviewImageKey: family.PreviewImageKey,
		UsageCount:      usageCount,
		LikesCount:      counts.Likes,
		DislikesCount:   counts.Dislikes,
		LastUsed:        relativetime.FormatOrNever(lastUsedAt, now),
		Types:           typeUsages,
		UsageStatistics: familydomain.UsageStatistics{
			RelatedProjects:  byProject,
			RelatedLocations: byCity,
			RelatedPeriods: familydomain.RelatedPeriods{
				LastMonth:   lastMonth,
				LastQuarter: lastQuarter,
				LastYear:    lastYear,
			},
		},
	}, nil
}

func (s *Service) UpdatePreviewImage(ctx context.Context, id, storageKey string) (*familydomain.Family, error) {
	family, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return nil, familydomain.ErrInvalidStorageKey
	}

	family.PreviewImageKey = &storageKey
	family.UpdatedAt = s.clock.Now()
	if err := s.familyRepo.Update(ctx, family.ID, family); err != nil {
		return nil, err
	}
	return family, nil
}
