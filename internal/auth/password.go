// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Package auth provides the authentication core: password hashing,
// account lockout, access/refresh token issuance and verification,
// and subject resolution middleware.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt work factor used when none is
// configured. Cost 12 balances brute-force resistance against login
// latency on current hardware.
const DefaultBcryptCost = 12

// HashPassword hashes a password with bcrypt at the given cost.
// The caller persists the returned digest; the plaintext is never
// stored or logged.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword checks a password against a stored bcrypt digest.
// It returns false for any failure: a malformed digest is
// indistinguishable from a wrong password, so callers cannot leak
// which factor failed. bcrypt's comparison is timing-safe with respect
// to the password content.
func VerifyPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
