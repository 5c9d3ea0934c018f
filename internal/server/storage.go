package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type createUploadURLRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

type createUploadURLResponse struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) CreateUploadURL(c *gin.Context) {
	if s.storageSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req createUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	url, expires, err := s.storageSvc.SignUploadURL(c.Request.Context(), req.Key, req.ContentType)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, createUploadURLResponse{
		URL:       url,
		Key:       req.Key,
		ExpiresAt: expires,
	})
}

// ReadStorageObject streams an object through the API so bucket access
// stays private.
func (s *Server) ReadStorageObject(c *gin.Context) {
	if s.storageSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	reader, info, err := s.storageSvc.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, reader, nil)
}
