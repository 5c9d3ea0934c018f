package domain

import (
	"context"
	"errors"
	"time"
)

// EnsureProjectRequest carries the project identity from an ingestion export.
type EnsureProjectRequest struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	CityName    *string        `json:"cityName"`
	Location    map[string]any `json:"location"`
	HarvestedAt time.Time      `json:"harvestedAt"`
}

type Service interface {
	// Ensure upserts the project row, refreshing name, city and harvest time.
	Ensure(ctx context.Context, req EnsureProjectRequest) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]Project, error)
}

var (
	ErrInvalidProjectID   = errors.New("invalid_project_id")
	ErrInvalidProjectName = errors.New("invalid_project_name")
	ErrProjectNotFound    = errors.New("project_not_found")
)
