package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/revitfy/revitfy/internal/clock"
	obsmetrics "github.com/revitfy/revitfy/internal/observability/metrics"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	"github.com/revitfy/revitfy/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) reactiondomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("reaction.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// React serializes concurrent toggles through a row lock inside a single
// transaction. The unique index on (entity_type, entity_id, user_id) is the
// storage-level backstop against a raced double insert; the loser of that
// race retries once against the row the winner created.
func (s *Service) React(ctx context.Context, req reactiondomain.ReactRequest) (string, error) {
	entityType := strings.TrimSpace(req.EntityType)
	entityID := strings.TrimSpace(req.EntityID)
	userID := strings.TrimSpace(req.UserID)
	reactionType := strings.TrimSpace(req.Type)

	if entityType != reactiondomain.EntityFamily && entityType != reactiondomain.EntityPlaylist {
		return "", reactiondomain.ErrInvalidEntityType
	}
	if entityID == "" {
		return "", reactiondomain.ErrInvalidEntity
	}
	if userID == "" {
		return "", reactiondomain.ErrInvalidUser
	}
	if reactionType != reactiondomain.ReactionLike && reactionType != reactiondomain.ReactionDislike {
		return "", reactiondomain.ErrInvalidReaction
	}

	exists, err := s.entityExists(ctx, entityType, entityID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", reactiondomain.ErrEntityNotFound
	}

	now := s.clock.Now()

	state, err := s.toggle(ctx, entityType, entityID, userID, reactionType, now)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// lost the insert race, the row exists now so the lookup sees it
		state, err = s.toggle(ctx, entityType, entityID, userID, reactionType, now)
	}
	if err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RecordReaction(ctx, entityType, state)
	}
	return state, nil
}

func (s *Service) toggle(ctx context.Context, entityType, entityID, userID, reactionType string, now time.Time) (string, error) {
	state := reactiondomain.StateNone

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := tx
		// sqlite serializes writers on its own and rejects FOR UPDATE
		if !strings.EqualFold(tx.Dialector.Name(), "sqlite") {
			lookup = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var existing reactiondomain.ReactionRecord
		err := lookup.
			Where("entity_type = ? AND entity_id = ? AND user_id = ?", entityType, entityID, userID).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := reactiondomain.ReactionRecord{
				ID:         s.genID.Generate(),
				EntityType: entityType,
				EntityID:   entityID,
				UserID:     userID,
				Type:       reactionType,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			state = reactionType
			return nil
		case err != nil:
			return err
		case existing.Type == reactionType:
			// same type re-submitted, toggle off
			if err := tx.Delete(&reactiondomain.ReactionRecord{}, "id = ?", existing.ID).Error; err != nil {
				return err
			}
			state = reactiondomain.StateNone
			return nil
		default:
			err := tx.Model(&reactiondomain.ReactionRecord{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{"type": reactionType, "updated_at": now}).Error
			if err != nil {
				return err
			}
			state = reactionType
			return nil
		}
	})
	if err != nil {
		return "", err
	}
	return state, nil
}

func (s *Service) Counts(ctx context.Context, entityType, entityID string) (reactiondomain.Counts, error) {
	var rows []struct {
		Type  string
		Total int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT type, COUNT(*) AS total
		 FROM reaction_records
		 WHERE entity_type = ? AND entity_id = ?
		 GROUP BY type`,
		strings.TrimSpace(entityType),
		strings.TrimSpace(entityID),
	).Scan(&rows).Error
	if err != nil {
		return reactiondomain.Counts{}, err
	}

	var counts reactiondomain.Counts
	for _, row := range rows {
		switch row.Type {
		case reactiondomain.ReactionLike:
			counts.Likes = row.Total
		case reactiondomain.ReactionDislike:
			counts.Dislikes = row.Total
		}
	}
	return counts, nil
}

func (s *Service) entityExists(ctx context.Context, entityType, entityID string) (bool, error) {
	table := "families"
	if entityType == reactiondomain.EntityPlaylist {
		table = "playlists"
	}
	var exists bool
	err := s.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = ?)`,
		entityID,
	).Scan(&exists).Error
	return exists, err
}
