package domain

import (
	"context"
	"errors"

	familydomain "github.com/revitfy/revitfy/internal/family/domain"
)

// CreatePlaylistRequest creates a playlist owned by the requesting user.
type CreatePlaylistRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// AddFamilyRequest appends a family to a playlist. When Order is nil the
// family is placed after the current highest position, starting at zero.
type AddFamilyRequest struct {
	PlaylistID string `json:"playlist_id"`
	FamilyID   string `json:"family_id"`
	Order      *int   `json:"order"`
}

// DetailCounts are the derived per-playlist tallies.
type DetailCounts struct {
	LikesCount    int64 `json:"likesCount"`
	FamiliesCount int64 `json:"familiesCount"`
}

// PlaylistDetail pairs a playlist with its derived counts.
type PlaylistDetail struct {
	Playlist
	DetailCounts
}

type Service interface {
	Create(ctx context.Context, req CreatePlaylistRequest) (*Playlist, error)
	Get(ctx context.Context, id string) (*Playlist, error)
	AddFamily(ctx context.Context, req AddFamilyRequest) error
	RemoveFamily(ctx context.Context, playlistID, familyID string) error
	// MembersOrdered lists member families ascending by position, insertion
	// order breaking ties.
	MembersOrdered(ctx context.Context, playlistID string) ([]familydomain.Family, error)
	Counts(ctx context.Context, playlistID string) (DetailCounts, error)
	ListAllWithDetails(ctx context.Context) ([]PlaylistDetail, error)
	// MadeForYou is the top five playlists by likes, descending.
	MadeForYou(ctx context.Context) ([]PlaylistDetail, error)
	// RecentlyUsed is the five most recently created playlists.
	RecentlyUsed(ctx context.Context) ([]PlaylistDetail, error)
	UpdatePreviewImage(ctx context.Context, id, storageKey string) (*Playlist, error)
}

var (
	ErrInvalidPlaylistID   = errors.New("invalid_playlist_id")
	ErrInvalidPlaylistName = errors.New("invalid_playlist_name")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrPlaylistNotFound    = errors.New("playlist_not_found")
	ErrPlaylistExists      = errors.New("playlist_exists")
	ErrFamilyNotFound      = errors.New("family_not_found")
	ErrAlreadyMember       = errors.New("already_member")
	ErrNotMember           = errors.New("not_member")
)
