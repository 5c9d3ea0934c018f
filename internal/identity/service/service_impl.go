package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revitfy/revitfy/internal/clock"
	identitydomain "github.com/revitfy/revitfy/internal/identity/domain"
	"github.com/revitfy/revitfy/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	userRepo    repository.Repository[identitydomain.User]
	sessionRepo repository.Repository[identitydomain.Session]
}

func NewService(p ServiceParam) identitydomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("identity.service"),
		clock:       p.Clock,
		userRepo:    repository.ProvideStore[identitydomain.User](p.DB),
		sessionRepo: repository.ProvideStore[identitydomain.Session](p.DB),
	}
}

func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", identitydomain.ErrInvalidSession
	}

	session, err := s.sessionRepo.FindOne(ctx, &identitydomain.Session{Token: token})
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", identitydomain.ErrInvalidSession
	}
	if !session.ExpiresAt.After(s.clock.Now()) {
		return "", identitydomain.ErrSessionExpired
	}
	return session.UserID, nil
}

func (s *Service) Issue(ctx context.Context, userID string, ttl time.Duration) (*identitydomain.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, identitydomain.ErrUserNotFound
	}
	user, err := s.userRepo.FindOne(ctx, &identitydomain.User{ID: userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, identitydomain.ErrUserNotFound
	}

	now := s.clock.Now()
	session := &identitydomain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
