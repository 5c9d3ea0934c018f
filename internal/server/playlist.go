package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	playlistdomain "github.com/revitfy/revitfy/internal/playlist/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
)

func (s *Server) ListPlaylists(c *gin.Context) {
	playlists, err := s.playlistSvc.ListAllWithDetails(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

type createPlaylistRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) CreatePlaylist(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	playlist, err := s.playlistSvc.Create(c.Request.Context(), playlistdomain.CreatePlaylistRequest{
		ID:     req.ID,
		Name:   req.Name,
		UserID: userID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, playlist)
}

func (s *Server) GetPlaylist(c *gin.Context) {
	ctx := c.Request.Context()
	playlist, err := s.playlistSvc.Get(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	counts, err := s.playlistSvc.Counts(ctx, playlist.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlistdomain.PlaylistDetail{
		Playlist:     *playlist,
		DetailCounts: counts,
	})
}

func (s *Server) ListPlaylistFamilies(c *gin.Context) {
	families, err := s.playlistSvc.MembersOrdered(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"families": families})
}

type addPlaylistFamilyRequest struct {
	FamilyID string `json:"familyId"`
	Order    *int   `json:"order"`
}

func (s *Server) AddPlaylistFamily(c *gin.Context) {
	var req addPlaylistFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.playlistSvc.AddFamily(c.Request.Context(), playlistdomain.AddFamilyRequest{
		PlaylistID: c.Param("id"),
		FamilyID:   req.FamilyID,
		Order:      req.Order,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok"})
}

func (s *Server) RemovePlaylistFamily(c *gin.Context) {
	err := s.playlistSvc.RemoveFamily(c.Request.Context(), c.Param("id"), c.Param("familyId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ReactToPlaylist(c *gin.Context) {
	s.react(c, reactiondomain.EntityPlaylist, c.Param("id"), "")
}

// LikePlaylist is the legacy like endpoint, equivalent to reacting with
// type like. Liking twice toggles the like off.
func (s *Server) LikePlaylist(c *gin.Context) {
	s.react(c, reactiondomain.EntityPlaylist, c.Param("id"), reactiondomain.ReactionLike)
}

func (s *Server) UpdatePlaylistPreviewImage(c *gin.Context) {
	var req updatePreviewImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	playlist, err := s.playlistSvc.UpdatePreviewImage(c.Request.Context(), c.Param("id"), req.StorageKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

func (s *Server) MadeForYou(c *gin.Context) {
	playlists, err := s.playlistSvc.MadeForYou(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}

func (s *Server) RecentlyUsed(c *gin.Context) {
	playlists, err := s.playlistSvc.RecentlyUsed(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": playlists})
}
