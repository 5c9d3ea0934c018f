package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
)

func (s *Server) ListFamilies(c *gin.Context) {
	var req familydomain.ListFamiliesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.familySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateFamily(c *gin.Context) {
	var req familydomain.CreateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	family, err := s.familySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, family)
}

func (s *Server) GetFamilyDetail(c *gin.Context) {
	detail, err := s.familySvc.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateFamily(c *gin.Context) {
	var req familydomain.UpdateFamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	family, err := s.familySvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, family)
}

func (s *Server) DeleteFamily(c *gin.Context) {
	if err := s.familySvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type updatePreviewImageRequest struct {
	StorageKey string `json:"storageKey"`
}

func (s *Server) UpdateFamilyPreviewImage(c *gin.Context) {
	var req updatePreviewImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	family, err := s.familySvc.UpdatePreviewImage(c.Request.Context(), c.Param("id"), req.StorageKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, family)
}

type reactRequest struct {
	Type string `json:"type"`
}

type reactResponse struct {
	State         string `json:"state"`
	LikesCount    int64  `json:"likesCount"`
	DislikesCount int64  `json:"dislikesCount"`
}

func (s *Server) ReactToFamily(c *gin.Context) {
	s.react(c, reactiondomain.EntityFamily, c.Param("id"), "")
}

// react runs the toggle for one entity and answers with the resulting state
// and fresh counts.
func (s *Server) react(c *gin.Context, entityType, entityID, forcedType string) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	reactionType := forcedType
	if reactionType == "" {
		var req reactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		reactionType = strings.TrimSpace(req.Type)
	}

	ctx := c.Request.Context()
	state, err := s.reactionSvc.React(ctx, reactiondomain.ReactRequest{
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Type:       reactionType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	counts, err := s.reactionSvc.Counts(ctx, entityType, entityID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, reactResponse{
		State:         state,
		LikesCount:    counts.Likes,
		DislikesCount: counts.Dislikes,
	})
}
