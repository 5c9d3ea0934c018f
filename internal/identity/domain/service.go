package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Resolve returns the user id behind a session token.
	Resolve(ctx context.Context, token string) (string, error)
	// Issue creates a session for an existing user.
	Issue(ctx context.Context, userID string, ttl time.Duration) (*Session, error)
}

var (
	ErrInvalidSession = errors.New("invalid_session")
	ErrSessionExpired = errors.New("session_expired")
	ErrUserNotFound   = errors.New("user_not_found")
)
