// Package seed bootstraps the default user so a fresh install can attribute
// reactions and playlists without an external identity provider.
package seed

import (
	"context"
	"errors"
	"time"

	identitydomain "github.com/revitfy/revitfy/internal/identity/domain"
	"gorm.io/gorm"
)

const (
	defaultUserID      = "usr_default"
	defaultUserEmail   = "architect@revitfy.local"
	defaultUserDisplay = "Revitfy Architect"

	// Fixed dev token so the Revit plugin can authenticate against a local
	// install without a login flow.
	defaultSessionToken = "dev-session-token"
	defaultSessionTTL   = 365 * 24 * time.Hour
)

// EnsureDefaultUser seeds the default user and its long-lived dev session.
func EnsureDefaultUser(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := ensureUserTx(ctx, tx)
		if err != nil {
			return err
		}
		return ensureSessionTx(ctx, tx, user.ID)
	})
}

func ensureUserTx(ctx context.Context, tx *gorm.DB) (identitydomain.User, error) {
	var user identitydomain.User
	err := tx.WithContext(ctx).Where("id = ?", defaultUserID).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	now := time.Now().UTC()
	user = identitydomain.User{
		ID:          defaultUserID,
		DisplayName: defaultUserDisplay,
		Email:       defaultUserEmail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureSessionTx(ctx context.Context, tx *gorm.DB, userID string) error {
	var session identitydomain.Session
	err := tx.WithContext(ctx).Where("token = ?", defaultSessionToken).First(&session).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	session = identitydomain.Session{
		Token:     defaultSessionToken,
		UserID:    userID,
		ExpiresAt: now.Add(defaultSessionTTL),
		CreatedAt: now,
	}
	return tx.WithContext(ctx).Create(&session).Error
}
