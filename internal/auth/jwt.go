// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/models"
)

// TokenKind distinguishes the two token types issued by the manager.
type TokenKind string

const (
	// TokenAccess is the short-lived token carrying subject id and role.
	TokenAccess TokenKind = "access"

	// TokenRefresh is the longer-lived token carrying subject id only,
	// used exclusively to obtain new access tokens.
	TokenRefresh TokenKind = "refresh"
)

// Token verification errors. Callers map these to API responses without
// exposing signature or parsing detail.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the signed claim set for both token kinds.
type Claims struct {
	// Role is set on access tokens only.
	Role string `json:"role,omitempty"`

	// TokenType is "access" or "refresh"; verification rejects a token
	// presented as the wrong kind even when the signature is valid.
	TokenType string `json:"token_type"`

	jwt.RegisteredClaims
}

// TokenManager issues and verifies access and refresh tokens.
// The two kinds are signed with independent HMAC-SHA256 secrets, so a
// refresh token can never pass verification as an access token.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clockSkew     time.Duration
	issuer        string
	audience      string
}

// NewTokenManager creates a token manager from security configuration.
// Both secrets are required and must be distinct; config validation
// enforces minimum length.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}

	return &TokenManager{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		clockSkew:     cfg.ClockSkew,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
	}, nil
}

// IssueAccessToken creates a signed access token for the subject.
func (m *TokenManager) IssueAccessToken(subjectID, role string) (string, error) {
	if !models.IsValidRole(role) {
		return "", fmt.Errorf("cannot issue access token for invalid role %q", role)
	}
	return m.sign(subjectID, role, TokenAccess, m.accessTTL, m.accessSecret)
}

// IssueRefreshToken creates a signed refresh token for the subject.
// Refresh tokens carry no role: the role is re-read from the live user
// record when a new access token is minted.
func (m *TokenManager) IssueRefreshToken(subjectID string) (string, error) {
	return m.sign(subjectID, "", TokenRefresh, m.refreshTTL, m.refreshSecret)
}

// sign builds and signs a token of the given kind.
func (m *TokenManager) sign(subjectID, role string, kind TokenKind, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:      role,
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return signed, nil
}

// Verify validates a token of the expected kind and returns its claims.
// It checks the HMAC signature, expiry (with the configured clock-skew
// leeway), issuer, audience, and the token-type claim. Failures map to
// ErrTokenExpired, ErrTokenInvalid, or ErrTokenMalformed.
func (m *TokenManager) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	secret := m.accessSecret
	if kind == TokenRefresh {
		secret = m.refreshSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithLeeway(m.clockSkew),
	)
	if err != nil {
		return nil, translateJWTError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != string(kind) {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if kind == TokenAccess && !models.IsValidRole(claims.Role) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// translateJWTError maps jwt library errors onto the package's
// verification errors. Expiry is reported distinctly; every other
// failure collapses to malformed or invalid so responses cannot be
// used to probe the signature.
func translateJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}
