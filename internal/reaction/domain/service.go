package domain

import (
	"context"
	"errors"
)

const (
	EntityFamily   = "family"
	EntityPlaylist = "playlist"

	ReactionLike    = "like"
	ReactionDislike = "dislike"

	// StateNone is the resulting state after a toggle-off.
	StateNone = "none"
)

// ReactRequest submits one reaction. Submitting the type already stored
// removes the row, submitting the opposite type overwrites it.
type ReactRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	UserID     string `json:"user_id"`
	Type       string `json:"type"`
}

// Counts tallies reaction rows for one entity.
type Counts struct {
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
}

type Service interface {
	// React runs the toggle state machine and returns the resulting state,
	// one of like, dislike or none.
	React(ctx context.Context, req ReactRequest) (string, error)
	Counts(ctx context.Context, entityType, entityID string) (Counts, error)
}

var (
	ErrInvalidEntityType = errors.New("invalid_entity_type")
	ErrInvalidEntity     = errors.New("invalid_entity")
	ErrInvalidUser       = errors.New("invalid_user")
	ErrInvalidReaction   = errors.New("invalid_reaction")
	ErrEntityNotFound    = errors.New("entity_not_found")
)
