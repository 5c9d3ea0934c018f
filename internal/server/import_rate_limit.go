package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/revitfy/revitfy/internal/observability/logger"
	"go.uber.org/zap"
)

type usageImportRateLimitKey struct {
	ProjectID string `json:"projectId"`
}

// UsageImportRateLimit admits snapshot imports through the redis token
// bucket, keyed by project so one chatty plugin cannot starve the rest.
func (s *Server) UsageImportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.importLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		key, err := readUsageImportKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("usage import rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}
		if key == "" {
			key = c.ClientIP()
		}

		result, err := s.importLimiter.Allow(ctx, key)
		if err != nil {
			logger.FromContext(ctx).Warn("usage import rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			logger.FromContext(ctx).Warn("usage import rate limit exceeded",
				zap.String("key", key),
				zap.Duration("retry_after", result.RetryAfter),
			)
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimit(ctx, false)
			}
			c.Header("Retry-After", retryAfterSeconds(result.RetryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimit(ctx, true)
		}
		c.Next()
	}
}

func readUsageImportKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload usageImportRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.ProjectID), nil
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
