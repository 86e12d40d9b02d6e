// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/models"
)

// memUserProvider is an in-memory UserProvider for tests.
type memUserProvider struct {
	users map[string]*models.User
}

func (p *memUserProvider) GetUserByID(_ context.Context, id string) (*models.User, error) {
	user, ok := p.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func testClaims(subjectID, role string, issuedAt time.Time) *Claims {
	return &Claims{
		Role:      role,
		TokenType: string(TokenAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subjectID,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
}

func TestResolver_Resolve(t *testing.T) {
	now := time.Now()
	provider := &memUserProvider{users: map[string]*models.User{
		"user-1": {
			ID:                "user-1",
			Email:             "dev@example.com",
			Role:              models.RoleDeveloper,
			Active:            true,
			PasswordChangedAt: now.Add(-time.Hour),
		},
	}}
	resolver := NewResolver(provider)

	subject, err := resolver.Resolve(context.Background(), testClaims("user-1", models.RoleDeveloper, now))
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject.ID)
	assert.Equal(t, "dev@example.com", subject.Email)
	assert.Equal(t, models.RoleDeveloper, subject.Role)
	assert.False(t, subject.IsAdmin())
}

func TestResolver_UnknownSubject(t *testing.T) {
	resolver := NewResolver(&memUserProvider{users: map[string]*models.User{}})

	_, err := resolver.Resolve(context.Background(), testClaims("ghost", models.RoleDeveloper, time.Now()))
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestResolver_DeactivatedSubject(t *testing.T) {
	now := time.Now()
	provider := &memUserProvider{users: map[string]*models.User{
		"user-1": {
			ID:                "user-1",
			Role:              models.RoleDeveloper,
			Active:            false,
			PasswordChangedAt: now.Add(-time.Hour),
		},
	}}
	resolver := NewResolver(provider)

	_, err := resolver.Resolve(context.Background(), testClaims("user-1", models.RoleDeveloper, now))
	assert.ErrorIs(t, err, ErrSubjectInactive)
}

func TestResolver_PasswordChangeInvalidatesOlderTokens(t *testing.T) {
	now := time.Now()
	provider := &memUserProvider{users: map[string]*models.User{
		"user-1": {
			ID:                "user-1",
			Role:              models.RoleDeveloper,
			Active:            true,
			PasswordChangedAt: now,
		},
	}}
	resolver := NewResolver(provider)

	// Token minted before the password change is stale.
	_, err := resolver.Resolve(context.Background(), testClaims("user-1", models.RoleDeveloper, now.Add(-time.Minute)))
	assert.ErrorIs(t, err, ErrStaleCredential)

	// Token minted after it is fine.
	_, err = resolver.Resolve(context.Background(), testClaims("user-1", models.RoleDeveloper, now.Add(time.Minute)))
	assert.NoError(t, err)
}

func TestResolver_RoleChangeInvalidatesToken(t *testing.T) {
	now := time.Now()
	provider := &memUserProvider{users: map[string]*models.User{
		"user-1": {
			ID:                "user-1",
			Role:              models.RoleProjectLead,
			Active:            true,
			PasswordChangedAt: now.Add(-time.Hour),
		},
	}}
	resolver := NewResolver(provider)

	_, err := resolver.Resolve(context.Background(), testClaims("user-1", models.RoleDeveloper, now))
	assert.ErrorIs(t, err, ErrStaleCredential)
}
