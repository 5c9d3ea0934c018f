package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/revitfy/revitfy/internal/clock"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	playlistdomain "github.com/revitfy/revitfy/internal/playlist/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	"github.com/revitfy/revitfy/pkg/db"
	"github.com/revitfy/revitfy/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const derivedViewLimit = 5

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	ReactionSvc reactiondomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	reactionSvc  reactiondomain.Service
	playlistRepo repository.Repository[playlistdomain.Playlist]
}

func NewService(p ServiceParam) playlistdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("playlist.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		reactionSvc:  p.ReactionSvc,
		playlistRepo: repository.ProvideStore[playlistdomain.Playlist](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req playlistdomain.CreatePlaylistRequest) (*playlistdomain.Playlist, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, playlistdomain.ErrInvalidPlaylistName
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, playlistdomain.ErrInvalidUser
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = "pls_" + s.genID.Generate().String()
	}

	now := s.clock.Now()
	record := &playlistdomain.Playlist{
		ID:        id,
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.playlistRepo.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, playlistdomain.ErrPlaylistExists
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id string) (*playlistdomain.Playlist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, playlistdomain.ErrInvalidPlaylistID
	}
	record, err := s.playlistRepo.FindOne(ctx, &playlistdomain.Playlist{ID: id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, playlistdomain.ErrPlaylistNotFound
	}
	return record, nil
}

// AddFamily is a checked insert, not an upsert. The unique index on
// (playlist_id, family_id) backstops the check under concurrent adds.
func (s *Service) AddFamily(ctx context.Context, req playlistdomain.AddFamilyRequest) error {
	playlistID := strings.TrimSpace(req.PlaylistID)
	familyID := strings.TrimSpace(req.FamilyID)
	if playlistID == "" {
		return playlistdomain.ErrInvalidPlaylistID
	}
	if familyID == "" {
		return playlistdomain.ErrFamilyNotFound
	}

	if _, err := s.Get(ctx, playlistID); err != nil {
		return err
	}
	exists, err := s.familyExists(ctx, familyID)
	if err != nil {
		return err
	}
	if !exists {
		return playlistdomain.ErrFamilyNotFound
	}

	var member bool
	err = s.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM playlist_families WHERE playlist_id = ? AND family_id = ?)`,
		playlistID, familyID,
	).Scan(&member).Error
	if err != nil {
		return err
	}
	if member {
		return playlistdomain.ErrAlreadyMember
	}

	order := 0
	if req.Order != nil {
		order = *req.Order
	} else {
		var maxOrder int
		err = s.db.WithContext(ctx).Raw(
			`SELECT COALESCE(MAX(sort_order), -1) FROM playlist_families WHERE playlist_id = ?`,
			playlistID,
		).Scan(&maxOrder).Error
		if err != nil {
			return err
		}
		order = maxOrder + 1
	}

	edge := &playlistdomain.PlaylistFamily{
		ID:         s.genID.Generate(),
		PlaylistID: playlistID,
		FamilyID:   familyID,
		SortOrder:  order,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(edge).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return playlistdomain.ErrAlreadyMember
		}
		return err
	}
	return nil
}

func (s *Service) RemoveFamily(ctx context.Context, playlistID, familyID string) error {
	playlistID = strings.TrimSpace(playlistID)
	familyID = strings.TrimSpace(familyID)
	if playlistID == "" {
		return playlistdomain.ErrInvalidPlaylistID
	}

	result := s.db.WithContext(ctx).
		Where("playlist_id = ? AND family_id = ?", playlistID, familyID).
		Delete(&playlistdomain.PlaylistFamily{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return playlistdomain.ErrNotMember
	}
	return nil
}

func (s *Service) MembersOrdered(ctx context.Context, playlistID string) ([]familydomain.Family, error) {
	if _, err := s.Get(ctx, playlistID); err != nil {
		return nil, err
	}

	var families []familydomain.Family
	err := s.db.WithContext(ctx).Raw(
		`SELECT f.*
		 FROM playlist_families pf
		 JOIN families f ON f.id = pf.family_id
		 WHERE pf.playlist_id = ?
		 ORDER BY pf.sort_order ASC, pf.created_at ASC, pf.id ASC`,
		playlistID,
	).Scan(&families).Error
	if err != nil {
		return nil, err
	}
	return families, nil
}

func (s *Service) Counts(ctx context.Context, playlistID string) (playlistdomain.DetailCounts, error) {
	if _, err := s.Get(ctx, playlistID); err != nil {
		return playlistdomain.DetailCounts{}, err
	}

	reactions, err := s.reactionSvc.Counts(ctx, reactiondomain.EntityPlaylist, playlistID)
	if err != nil {
		return playlistdomain.DetailCounts{}, err
	}

	var familiesCount int64
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM playlist_families WHERE playlist_id = ?`,
		playlistID,
	).Scan(&familiesCount).Error
	if err != nil {
		return playlistdomain.DetailCounts{}, err
	}

	return playlistdomain.DetailCounts{
		LikesCount:    reactions.Likes,
		FamiliesCount: familiesCount,
	}, nil
}

func (s *Service) ListAllWithDetails(ctx context.Context) ([]playlistdomain.PlaylistDetail, error) {
	items, err := s.playlistRepo.Find(ctx, &playlistdomain.Playlist{})
	if err != nil {
		return nil, err
	}

	likes, err := s.likesByPlaylist(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.membersByPlaylist(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]playlistdomain.PlaylistDetail, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		details = append(details, playlistdomain.PlaylistDetail{
			Playlist: *item,
			DetailCounts: playlistdomain.DetailCounts{
				LikesCount:    likes[item.ID],
				FamiliesCount: members[item.ID],
			},
		})
	}
	return details, nil
}

// MadeForYou and RecentlyUsed are post-processing sorts over the same
// underlying listing, there is no separate storage for either view.
func (s *Service) MadeForYou(ctx context.Context) ([]playlistdomain.PlaylistDetail, error) {
	details, err := s.ListAllWithDetails(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(details, func(i, j int) bool {
		if details[i].LikesCount != details[j].LikesCount {
			return details[i].LikesCount > details[j].LikesCount
		}
		return details[i].ID < details[j].ID
	})
	return truncateDetails(details), nil
}

func (s *Service) RecentlyUsed(ctx context.Context) ([]playlistdomain.PlaylistDetail, error) {
	details, err := s.ListAllWithDetails(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return details[i].ID < details[j].ID
	})
	return truncateDetails(details), nil
}

func (s *Service) UpdatePreviewImage(ctx context.Context, id, storageKey string) (*playlistdomain.Playlist, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return nil, playlistdomain.ErrInvalidPlaylistID
	}

	record.PreviewImageKey = &storageKey
	record.UpdatedAt = s.clock.Now()
	if err := s.playlistRepo.Update(ctx, record.ID, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) familyExists(ctx context.Context, familyID string) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).Raw(
		`SELECT EXISTS(SELECT 1 FROM families WHERE id = ?)`,
		familyID,
	).Scan(&exists).Error
	return exists, err
}

func (s *Service) likesByPlaylist(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EntityID string
		Total    int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT entity_id, COUNT(*) AS total
		 FROM reaction_records
		 WHERE entity_type = ? AND type = ?
		 GROUP BY entity_id`,
		reactiondomain.EntityPlaylist,
		reactiondomain.ReactionLike,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	likes := make(map[string]int64, len(rows))
	for _, row := range rows {
		likes[row.EntityID] = row.Total
	}
	return likes, nil
}

func (s *Service) membersByPlaylist(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		PlaylistID string
		Total      int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT playlist_id, COUNT(*) AS total
		 FROM playlist_families
		 GROUP BY playlist_id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	members := make(map[string]int64, len(rows))
	for _, row := range rows {
		members[row.PlaylistID] = row.Total
	}
	return members, nil
}

func truncateDetails(details []playlistdomain.PlaylistDetail) []playlistdomain.PlaylistDetail {
	if len(details) > derivedViewLimit {
		return details[:derivedViewLimit]
	}
	return details
}
