// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/models"
)

// UserStore persists user accounts and their lockout state. It
// implements auth.LockoutStore and auth.UserProvider.
type UserStore struct {
	db *sql.DB
}

const userColumns = `id, email, name, role, password_hash, active,
	failed_attempts, locked_until, password_changed_at, created_at, updated_at`

// CreateUser inserts a new account. The email is normalized before the
// uniqueness check; an id is assigned when empty.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = models.NormalizeEmail(u.Email)

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.PasswordChangedAt.IsZero() {
		u.PasswordChangedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, password_hash, active,
			failed_attempts, locked_until, password_changed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.Active,
		u.PasswordChangedAt, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err, "users.email") {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID loads a user by id.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail loads a user by normalized email.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", models.NormalizeEmail(email))
}

func (s *UserStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var lockedUntil sql.NullTime

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash,
		&u.Active, &u.FailedAttempts, &lockedUntil, &u.PasswordChangedAt,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if lockedUntil.Valid {
		u.LockedUntil = &lockedUntil.Time
	}
	return &u, nil
}

// ListUsers returns all accounts ordered by creation time.
func (s *UserStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var users []*models.User
	for rows.Next() {
		var u models.User
		var lockedUntil sql.NullTime
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash,
			&u.Active, &u.FailedAttempts, &lockedUntil, &u.PasswordChangedAt,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if lockedUntil.Valid {
			u.LockedUntil = &lockedUntil.Time
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of accounts, used by the bootstrap
// admin seeding.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// UpdateUser updates profile, role, and active flag.
func (s *UserStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.Email = models.NormalizeEmail(u.Email)
	u.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, u.Role, u.Active, u.UpdatedAt, u.ID,
	)
	if isUniqueViolation(err, "users.email") {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res)
}

// UpdatePassword replaces the credential hash and bumps
// password_changed_at, invalidating all previously issued tokens.
func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, password_changed_at = ?, updated_at = ?
		WHERE id = ?`,
		passwordHash, changedAt, changedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(res)
}

// SetActive flips the active flag.
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	return requireRow(res)
}

// DeleteUser removes an account. Projects the user created are left in
// place; callers are expected to reassign them first.
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(res)
}

// GetLockout returns the lockout state for an account.
func (s *UserStore) GetLockout(ctx context.Context, userID string) (auth.LockoutState, error) {
	var state auth.LockoutState
	var lockedUntil sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT failed_attempts, locked_until FROM users WHERE id = ?`, userID,
	).Scan(&state.FailedAttempts, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.LockoutState{}, ErrNotFound
	}
	if err != nil {
		return auth.LockoutState{}, fmt.Errorf("failed to read lockout state: %w", err)
	}

	if lockedUntil.Valid {
		state.LockedUntil = &lockedUntil.Time
	}
	return state, nil
}

// RegisterFailure atomically records one failed login. The
// read-increment-write runs in a transaction that holds the write lock
// from BEGIN (the handle opens with _txlock=immediate), so two
// concurrent failures cannot both read the same counter. A counter
// whose lock window already elapsed restarts from one.
func (s *UserStore) RegisterFailure(ctx context.Context, userID string, cfg auth.LockoutConfig, now time.Time) (auth.LockoutState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.LockoutState{}, fmt.Errorf("failed to begin lockout transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var attempts int
	var lockedUntil sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT failed_attempts, locked_until FROM users WHERE id = ?`, userID,
	).Scan(&attempts, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.LockoutState{}, ErrNotFound
	}
	if err != nil {
		return auth.LockoutState{}, fmt.Errorf("failed to read lockout state: %w", err)
	}

	if lockedUntil.Valid && !now.Before(lockedUntil.Time) {
		attempts = 0
		lockedUntil = sql.NullTime{}
	}

	attempts++
	if attempts >= cfg.Threshold {
		lockedUntil = sql.NullTime{Time: now.Add(cfg.Duration), Valid: true}
	}

	var until interface{}
	if lockedUntil.Valid {
		until = lockedUntil.Time
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET failed_attempts = ?, locked_until = ? WHERE id = ?`,
		attempts, until, userID,
	); err != nil {
		return auth.LockoutState{}, fmt.Errorf("failed to record login failure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return auth.LockoutState{}, fmt.Errorf("failed to commit lockout update: %w", err)
	}

	state := auth.LockoutState{FailedAttempts: attempts}
	if lockedUntil.Valid {
		state.LockedUntil = &lockedUntil.Time
	}
	return state, nil
}

// ResetLockout clears the failure counter after a successful login.
func (s *UserStore) ResetLockout(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, locked_until = NULL WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to reset lockout: %w", err)
	}
	return nil
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
