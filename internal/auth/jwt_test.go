// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/models"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		AccessTokenSecret:  "test-access-secret-0123456789abcdef",
		RefreshTokenSecret: "test-refresh-secret-0123456789abcdef",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		ClockSkew:          5 * time.Second,
		Issuer:             "crewdeck",
		Audience:           "crewdeck-api",
	}
}

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecurityConfig())
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_RequiresDistinctSecrets(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.RefreshTokenSecret = cfg.AccessTokenSecret

	_, err := NewTokenManager(cfg)
	assert.Error(t, err)
}

func TestNewTokenManager_RequiresSecrets(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AccessTokenSecret = ""

	_, err := NewTokenManager(cfg)
	assert.Error(t, err)
}

func TestTokenManager_AccessTokenRoundTrip(t *testing.T) {
	m := newTestTokenManager(t)

	token, err := m.IssueAccessToken("user-1", models.RoleDeveloper)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, models.RoleDeveloper, claims.Role)
	assert.Equal(t, string(TokenAccess), claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RefreshTokenRoundTrip(t *testing.T) {
	m := newTestTokenManager(t)

	token, err := m.IssueRefreshToken("user-1")
	require.NoError(t, err)

	claims, err := m.Verify(token, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Empty(t, claims.Role)
	assert.Equal(t, string(TokenRefresh), claims.TokenType)
}

func TestTokenManager_RejectsInvalidRole(t *testing.T) {
	m := newTestTokenManager(t)

	_, err := m.IssueAccessToken("user-1", "superuser")
	assert.Error(t, err)
}

func TestTokenManager_KindConfusionRejected(t *testing.T) {
	m := newTestTokenManager(t)

	refresh, err := m.IssueRefreshToken("user-1")
	require.NoError(t, err)

	// A refresh token presented as an access token must fail even
	// though both are validly signed by the same manager.
	_, err = m.Verify(refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	access, err := m.IssueAccessToken("user-1", models.RoleAdmin)
	require.NoError(t, err)

	_, err = m.Verify(access, TokenRefresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AccessTokenTTL = -1 * time.Minute
	cfg.ClockSkew = 0
	m, err := NewTokenManager(cfg)
	require.NoError(t, err)

	token, err := m.IssueAccessToken("user-1", models.RoleDeveloper)
	require.NoError(t, err)

	_, err = m.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_LeewayToleratesSmallSkew(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.AccessTokenTTL = -2 * time.Second
	cfg.ClockSkew = 5 * time.Second
	m, err := NewTokenManager(cfg)
	require.NoError(t, err)

	// Expired two seconds ago, but inside the five-second leeway.
	token, err := m.IssueAccessToken("user-1", models.RoleDeveloper)
	require.NoError(t, err)

	_, err = m.Verify(token, TokenAccess)
	assert.NoError(t, err)
}

func TestTokenManager_MalformedToken(t *testing.T) {
	m := newTestTokenManager(t)

	_, err := m.Verify("not-a-jwt", TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenManager_TamperedToken(t *testing.T) {
	m := newTestTokenManager(t)

	token, err := m.IssueAccessToken("user-1", models.RoleDeveloper)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = m.Verify(tampered, TokenAccess)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	m := newTestTokenManager(t)

	other := testSecurityConfig()
	other.AccessTokenSecret = "completely-different-secret-0123456789"
	m2, err := NewTokenManager(other)
	require.NoError(t, err)

	token, err := m.IssueAccessToken("user-1", models.RoleDeveloper)
	require.NoError(t, err)

	_, err = m2.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
