// Package sessions persists one device record per issued refresh token and
// owns the rotation primitive. Records are revoked in place, never deleted,
// so the unique token value index keeps a revoked value from ever
// authenticating again.
package sessions

import (
	"errors"
	"fmt"

	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/models"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(userID uint, tokenValue, ip, userAgent string) (*models.Session, error) {
	session := models.Session{
		UserID:       userID,
		RefreshToken: tokenValue,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}

	if err := s.db.Create(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// An identical token value already exists. That only happens on
			// a signature collision or replay, which is a signal to reject.
			return nil, apperr.ErrInvalidToken
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

func (s *Store) FindByToken(tokenValue string) (*models.Session, error) {
	var session models.Session

	err := s.db.Where("refresh_token = ?", tokenValue).First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	return &session, nil
}

// Revoke marks the session for tokenValue revoked. Revoking an unknown or
// already-revoked token is a no-op, which makes logout retries safe.
func (s *Store) Revoke(tokenValue string) error {
	err := s.db.Model(&models.Session{}).
		Where("refresh_token = ?", tokenValue).
		Update("is_revoked", true).Error

	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeAll revokes every session belonging to userID. Used after a
// password reset so stolen refresh tokens die with the old password.
func (s *Store) RevokeAll(userID uint) error {
	err := s.db.Model(&models.Session{}).
		Where("user_id = ?", userID).
		Update("is_revoked", true).Error

	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	return nil
}

// RevokeAndReplace retires the old token and persists its successor in one
// transaction. The revocation update is conditional on the record still
// being live; two concurrent refresh calls against the same token race on
// that row and exactly one wins, the other gets ErrInvalidToken.
func (s *Store) RevokeAndReplace(oldTokenValue string, userID uint, newTokenValue, ip, userAgent string) (*models.Session, error) {
	var session models.Session

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("refresh_token = ? AND is_revoked = ?", oldTokenValue, false).
			Update("is_revoked", true)

		if res.Error != nil {
			return fmt.Errorf("retire session: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			return apperr.ErrInvalidToken
		}

		session = models.Session{
			UserID:       userID,
			RefreshToken: newTokenValue,
			IPAddress:    ip,
			UserAgent:    userAgent,
		}

		if err := tx.Create(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrInvalidToken
			}
			return fmt.Errorf("create successor session: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return &session, nil
}
