// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewdeck/crewdeck/internal/models"
)

// Subject resolution errors. All of them surface as 401 at the API
// layer; the distinction exists for logging.
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSubjectInactive = errors.New("subject deactivated")
	ErrStaleCredential = errors.New("token issued before credential change")
)

// Subject is the authenticated caller attached to each request.
// Authorization decisions read the role from here, never from request
// payloads.
type Subject struct {
	ID    string
	Email string
	Role  string
}

// IsAdmin reports whether the subject holds the admin role.
func (s Subject) IsAdmin() bool { return s.Role == models.RoleAdmin }

// UserProvider supplies live user records for token cross-checks.
type UserProvider interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns verified access-token claims into a live Subject.
// Token claims are only a hint: the user must still exist, be active,
// hold the same role the token was minted with, and must not have
// changed their password after the token was issued. Any mismatch
// invalidates the token.
type Resolver struct {
	users UserProvider
}

// NewResolver creates a subject resolver over the given user provider.
func NewResolver(users UserProvider) *Resolver {
	return &Resolver{users: users}
}

// Resolve cross-checks claims against the current user record.
func (r *Resolver) Resolve(ctx context.Context, claims *Claims) (Subject, error) {
	user, err := r.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, claims.Subject)
	}

	if !user.Active {
		return Subject{}, ErrSubjectInactive
	}

	// A password change invalidates every token issued before it.
	if iat := claims.IssuedAt; iat != nil && user.PasswordChangedAt.After(iat.Time) {
		return Subject{}, ErrStaleCredential
	}

	// A role change invalidates outstanding access tokens carrying the
	// old role; the subject must log in again to pick up the new one.
	if claims.Role != user.Role {
		return Subject{}, ErrStaleCredential
	}

	return Subject{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}
