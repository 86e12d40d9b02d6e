// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package models

import (
	"strings"
	"time"
)

// User is an authenticated actor. The password hash never leaves the
// store layer: it carries a `json:"-"` tag and Sanitized() clears it
// before a user is embedded in any response payload.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`

	// PasswordHash is the bcrypt digest of the user's password.
	PasswordHash string `json:"-"`

	// Active gates all authentication; inactive users cannot log in and
	// their existing tokens fail subject resolution.
	Active bool `json:"active"`

	// FailedAttempts and LockedUntil implement the login lockout window.
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`

	// PasswordChangedAt invalidates any token issued before this instant.
	PasswordChangedAt time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email for use as the unique
// login identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether the user is locked out at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Sanitized returns a copy safe for serialization: the credential hash
// and lockout bookkeeping are cleared.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.FailedAttempts = 0
	c.LockedUntil = nil
	return &c
}
