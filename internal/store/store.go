// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Package store persists Crewdeck state in SQLite via database/sql and
// the CGO-free modernc.org/sqlite driver. The three concurrent-update
// hazards (lockout counter, single outstanding completion request,
// exactly-once review) are resolved inside SQL: a transactional
// counter update, a partial unique index, and a conditional UPDATE
// where the first writer wins.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/crewdeck/crewdeck/internal/logging"
)

// Sentinel errors shared by all sub-stores.
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrOutstandingRequest  = errors.New("project already has an outstanding completion request")
	ErrAlreadyReviewed     = errors.New("completion request already reviewed")
	ErrDeveloperAssignment = errors.New("duplicate developer assignment")
)

// Store bundles the sub-stores over one SQLite handle.
type Store struct {
	db *sql.DB

	Users     *UserStore
	Projects  *ProjectStore
	Documents *DocumentStore
	Messages  *MessageStore
	Audit     *AuditStore
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" is supported for tests; it pins the pool to one
// connection so every statement sees the same in-memory database.
//
// Transactions start with _txlock=immediate: BEGIN takes the write
// lock up front, so concurrent write transactions queue on
// busy_timeout instead of deadlocking on a deferred lock upgrade.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path,
	)
	if path == ":memory:" {
		dsn = "file::memory:?_txlock=immediate&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	s.Users = &UserStore{db: db}
	s.Projects = &ProjectStore{db: db}
	s.Documents = &DocumentStore{db: db}
	s.Messages = &MessageStore{db: db}
	s.Audit = &AuditStore{db: db}

	logger := logging.With().Str("component", "store").Logger()
	logger.Debug().Str("path", path).Msg("Database opened")

	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for ad-hoc queries in tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure
// on the given qualified column. The sqlite driver exposes constraint
// violations only through the error text.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
