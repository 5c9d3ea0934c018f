package service

import (
	"context"
	"strings"

	"github.com/revitfy/revitfy/internal/clock"
	projectdomain "github.com/revitfy/revitfy/internal/project/domain"
	"github.com/revitfy/revitfy/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	repo repository.Repository[projectdomain.Project]
}

func NewService(p ServiceParam) projectdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("project.service"),
		clock: p.Clock,
		repo:  repository.ProvideStore[projectdomain.Project](p.DB),
	}
}

func (s *Service) Ensure(ctx context.Context, req projectdomain.EnsureProjectRequest) (*projectdomain.Project, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, projectdomain.ErrInvalidProjectID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, projectdomain.ErrInvalidProjectName
	}

	now := s.clock.Now()
	harvestedAt := req.HarvestedAt
	if harvestedAt.IsZero() {
		harvestedAt = now
	}

	record := &projectdomain.Project{
		ID:          id,
		Name:        name,
		CityName:    normalizeCity(req.CityName),
		HarvestedAt: &harvestedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Location != nil {
		record.Location = datatypes.JSONMap(req.Location)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "city_name", "location", "harvested_at", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id string) (*projectdomain.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, projectdomain.ErrInvalidProjectID
	}
	record, err := s.repo.FindOne(ctx, &projectdomain.Project{ID: id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, projectdomain.ErrProjectNotFound
	}
	return record, nil
}

func (s *Service) List(ctx context.Context) ([]projectdomain.Project, error) {
	items, err := s.repo.Find(ctx, &projectdomain.Project{})
	if err != nil {
		return nil, err
	}
	projects := make([]projectdomain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}
	return projects, nil
}

func normalizeCity(city *string) *string {
	if city == nil {
		return nil
	}
	value := strings.TrimSpace(*city)
	if value == "" {
		return nil
	}
	return &value
}
