// Package token signs and verifies the compact claims used for
// authentication. Three purposes exist, each with its own secret and
// lifetime, so a claim issued for one purpose can never be replayed as
// another. Verification is pure: revocation is enforced by the session
// store one layer up.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose int

const (
	Access Purpose = iota
	Refresh
	Reset
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

var (
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

type Config struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string

	// Zero TTLs fall back to the defaults above.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

type Codec struct {
	secrets map[Purpose][]byte
	ttls    map[Purpose]time.Duration
}

type claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

func NewCodec(cfg Config) *Codec {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = DefaultResetTTL
	}

	return &Codec{
		secrets: map[Purpose][]byte{
			Access:  []byte(cfg.AccessSecret),
			Refresh: []byte(cfg.RefreshSecret),
			Reset:   []byte(cfg.ResetSecret),
		},
		ttls: map[Purpose]time.Duration{
			Access:  cfg.AccessTTL,
			Refresh: cfg.RefreshTTL,
			Reset:   cfg.ResetTTL,
		},
	}
}

// Issue mints a signed claim for userID. The jti is a fresh UUID, so two
// tokens minted for the same user in the same second still differ, which
// the session store relies on for its unique token value index.
func (c *Codec) Issue(p Purpose, userID uint) (string, error) {
	now := time.Now()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttls[p])),
		},
	})

	signed, err := tok.SignedString(c.secrets[p])
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify checks signature and expiry for the given purpose and returns the
// embedded user ID.
func (c *Codec) Verify(p Purpose, tokenString string) (uint, error) {
	userID, _, err := c.verify(p, tokenString)
	return userID, err
}

// VerifyWithID additionally returns the claim's jti, which the reset flow
// persists to enforce single use.
func (c *Codec) VerifyWithID(p Purpose, tokenString string) (uint, string, error) {
	return c.verify(p, tokenString)
}

func (c *Codec) verify(p Purpose, tokenString string) (uint, string, error) {
	var cl claims

	tok, err := jwt.ParseWithClaims(tokenString, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secrets[p], nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", ErrExpired
		}
		return 0, "", ErrInvalidSignature
	}

	if !tok.Valid || cl.UserID == 0 {
		return 0, "", ErrInvalidSignature
	}

	return cl.UserID, cl.ID, nil
}
