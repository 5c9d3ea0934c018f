package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/revitfy/revitfy/internal/config"
)

const keyUsageImport = "usage:import:%s"

// ImportLimiter throttles snapshot imports per client key. A nil limiter is
// valid and admits everything, which is how the disabled configuration is
// represented.
type ImportLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewImportLimiter(cfg config.Config) (*ImportLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ImportRate <= 0 || limitCfg.ImportBurst <= 0 {
		return nil, errors.New("usage import rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ImportLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.ImportRate,
		burst:   limitCfg.ImportBurst,
	}, nil
}

func (l *ImportLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ImportLimiter) Allow(ctx context.Context, clientKey string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUsageImport, strings.TrimSpace(clientKey)), l.rate, l.burst)
}
