// Package auth orchestrates register, login, refresh, logout and the
// password-reset flow. It owns the refresh token rotation protocol: every
// successful refresh retires the presented token and mints a successor, so
// a captured token is usable at most once.
package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/sessions"
	"github.com/taskhive-dev/taskhive/internal/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Mailer delivers password-reset links. Failures are reported as a boolean
// to the caller, never as a typed error.
type Mailer interface {
	SendPasswordReset(to, link string) error
}

// Client carries the request metadata recorded on each session.
type Client struct {
	IP        string
	UserAgent string
}

// Result is a freshly issued token pair plus the authenticated user.
type Result struct {
	AccessToken  string
	RefreshToken string
	User         models.User
}

type Service struct {
	db          *gorm.DB
	codec       *token.Codec
	sessions    *sessions.Store
	mailer      Mailer
	frontendURL string
}

func NewService(db *gorm.DB, codec *token.Codec, store *sessions.Store, mailer Mailer, frontendURL string) *Service {
	return &Service{
		db:          db,
		codec:       codec,
		sessions:    store,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

func (s *Service) Register(name, email, password string, client Client) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.User
	err := s.db.Where("email = ?", email).First(&existing).Error

	if err == nil {
		return nil, apperr.ErrConflict
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         "OWNER",
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issuePair(user, client)
}

func (s *Service) Login(email, password string, client Client) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredential
	}

	return s.issuePair(user, client)
}

// Refresh rotates refreshToken: the presented token leaves its live state
// exactly once, and the caller gets a fresh pair. A retried call with the
// same value fails and must be surfaced as "log in again", not retried.
func (s *Service) Refresh(refreshToken string, client Client) (*Result, error) {
	if refreshToken == "" {
		return nil, apperr.ErrMissingToken
	}

	session, err := s.sessions.FindByToken(refreshToken)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}

	if session.IsRevoked {
		return nil, apperr.ErrInvalidToken
	}

	userID, err := s.codec.Verify(token.Refresh, refreshToken)
	if err != nil {
		// A known token that fails verification is a compromise signal, not
		// a benign expiry: kill the record before rejecting.
		if revokeErr := s.sessions.Revoke(refreshToken); revokeErr != nil {
			log.Printf("Failed to revoke tampered session: %v", revokeErr)
		}
		return nil, apperr.ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	accessToken, err := s.codec.Issue(token.Access, user.ID)
	if err != nil {
		return nil, err
	}

	newRefreshToken, err := s.codec.Issue(token.Refresh, user.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.RevokeAndReplace(refreshToken, user.ID, newRefreshToken, client.IP, client.UserAgent); err != nil {
		return nil, err
	}

	return &Result{AccessToken: accessToken, RefreshToken: newRefreshToken, User: user}, nil
}

// Logout revokes the session behind refreshToken. An absent or already
// revoked token is treated as already logged out, not as an error.
func (s *Service) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(refreshToken)
}

// RequestPasswordReset mails a short-lived reset link. The boolean result
// deliberately carries no detail: an unknown email and a mail failure both
// come back false.
func (s *Service) RequestPasswordReset(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return false
	}

	resetToken, err := s.codec.Issue(token.Reset, user.ID)
	if err != nil {
		log.Printf("Failed to issue reset token: %v", err)
		return false
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, resetToken)

	if err := s.mailer.SendPasswordReset(user.Email, link); err != nil {
		log.Printf("Failed to send reset email: %v", err)
		return false
	}

	return true
}

// ConfirmPasswordReset verifies a reset claim, enforces single use via its
// jti, rehashes the password and revokes every session of the user.
func (s *Service) ConfirmPasswordReset(resetToken, newPassword string) bool {
	userID, jti, err := s.codec.VerifyWithID(token.Reset, resetToken)
	if err != nil {
		return false
	}

	// First consumption of the jti wins; replays hit the unique index.
	if err := s.db.Create(&models.ResetTokenUse{JTI: jti, UserID: userID}).Error; err != nil {
		return false
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash new password: %v", err)
		return false
	}

	err = s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", string(passwordHash)).Error

	if err != nil {
		log.Printf("Failed to update password: %v", err)
		return false
	}

	if err := s.sessions.RevokeAll(userID); err != nil {
		log.Printf("Failed to revoke sessions after reset: %v", err)
	}

	return true
}

// VerifyAccess validates a bearer access claim and returns the user ID.
func (s *Service) VerifyAccess(accessToken string) (uint, error) {
	userID, err := s.codec.Verify(token.Access, accessToken)
	if err != nil {
		return 0, apperr.ErrInvalidToken
	}
	return userID, nil
}

func (s *Service) issuePair(user models.User, client Client) (*Result, error) {
	accessToken, err := s.codec.Issue(token.Access, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(token.Refresh, user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if _, err := s.sessions.Create(user.ID, refreshToken, client.IP, client.UserAgent); err != nil {
		return nil, err
	}

	return &Result{AccessToken: accessToken, RefreshToken: refreshToken, User: user}, nil
}
