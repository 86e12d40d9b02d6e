// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/crewdeck/crewdeck/internal/logging"
)

// ErrAccountLocked is returned when an account is under an active
// lockout window. The API layer maps it to 403 with an ACCOUNT_LOCKED
// code so clients can distinguish it from bad credentials.
var ErrAccountLocked = errors.New("account locked")

// LockoutConfig controls failed-login lockout behavior.
type LockoutConfig struct {
	// Threshold is the number of consecutive failures that triggers a lock.
	Threshold int

	// Duration is how long the account stays locked once triggered.
	Duration time.Duration
}

// LockoutState is the persisted failure counter for one account.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// LockoutStore persists per-account failure counters. The store must
// apply RegisterFailure atomically so concurrent failed logins cannot
// lose increments.
type LockoutStore interface {
	// GetLockout returns the current lockout state for the account.
	GetLockout(ctx context.Context, userID string) (LockoutState, error)

	// RegisterFailure atomically records one failed attempt at time now
	// under cfg, returning the resulting state. A counter whose lock
	// window has already expired restarts from one.
	RegisterFailure(ctx context.Context, userID string, cfg LockoutConfig, now time.Time) (LockoutState, error)

	// ResetLockout clears the failure counter and any lock.
	ResetLockout(ctx context.Context, userID string) error
}

// LockoutTracker enforces the consecutive-failure lockout policy on
// top of a LockoutStore.
type LockoutTracker struct {
	store LockoutStore
	cfg   LockoutConfig
}

// NewLockoutTracker creates a tracker with the given policy.
func NewLockoutTracker(store LockoutStore, cfg LockoutConfig) *LockoutTracker {
	return &LockoutTracker{store: store, cfg: cfg}
}

// Check returns ErrAccountLocked if the account is inside an active
// lockout window at time now. It is called before credentials are
// verified, so a locked account rejects even the correct password.
// An expired lock does not block; the stale counter is cleared on the
// next successful login or restarted on the next failure.
func (t *LockoutTracker) Check(ctx context.Context, userID string, now time.Time) error {
	state, err := t.store.GetLockout(ctx, userID)
	if err != nil {
		return err
	}

	if state.LockedUntil != nil && now.Before(*state.LockedUntil) {
		return ErrAccountLocked
	}

	return nil
}

// RecordFailure registers one failed login attempt. When the counter
// reaches the threshold the account is locked and ErrAccountLocked is
// returned alongside the lock expiry.
func (t *LockoutTracker) RecordFailure(ctx context.Context, userID string, now time.Time) (locked bool, until time.Time, err error) {
	state, err := t.store.RegisterFailure(ctx, userID, t.cfg, now)
	if err != nil {
		return false, time.Time{}, err
	}

	if state.LockedUntil != nil && now.Before(*state.LockedUntil) {
		logging.Ctx(ctx).Warn().
			Str("user_id", userID).
			Int("failed_attempts", state.FailedAttempts).
			Time("locked_until", *state.LockedUntil).
			Msg("Account locked after repeated failed logins")
		return true, *state.LockedUntil, nil
	}

	return false, time.Time{}, nil
}

// RecordSuccess clears the failure counter after a successful login.
func (t *LockoutTracker) RecordSuccess(ctx context.Context, userID string) error {
	return t.store.ResetLockout(ctx, userID)
}
