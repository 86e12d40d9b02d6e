// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package store

import (
	"database/sql"
	"fmt"
)

// migrations run in order inside one transaction. The schema is small
// enough that idempotent CREATE IF NOT EXISTS statements serve as the
// migration mechanism.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'project-lead', 'developer')),
		password_hash TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until TIMESTAMP,
		password_changed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		deadline TIMESTAMP NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('active', 'completed', 'on-hold', 'cancelled')),
		priority TEXT NOT NULL CHECK (priority IN ('low', 'medium', 'high', 'critical')),
		created_by TEXT NOT NULL REFERENCES users(id),
		project_lead TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS project_developers (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		stored_name TEXT NOT NULL,
		original_name TEXT NOT NULL,
		size INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		checksum TEXT NOT NULL,
		classification TEXT NOT NULL CHECK (classification IN ('public', 'internal', 'confidential', 'secret')),
		uploaded_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS document_access (
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		role_at_grant TEXT NOT NULL,
		PRIMARY KEY (document_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL,
		content TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('message', 'completion-request', 'completion-approved', 'completion-rejected')),
		reviewed_by TEXT,
		review_response TEXT NOT NULL DEFAULT '',
		reviewed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,

	// One unreviewed completion request per project. Two concurrent
	// submissions race on this index; the loser gets a constraint
	// violation mapped to ErrOutstandingRequest.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_outstanding_request
		ON messages(project_id)
		WHERE type = 'completion-request' AND reviewed_by IS NULL`,

	`CREATE INDEX IF NOT EXISTS idx_messages_project
		ON messages(project_id, created_at)`,

	`CREATE INDEX IF NOT EXISTS idx_documents_project
		ON documents(project_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_id TEXT NOT NULL,
		actor_email TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_resource
		ON audit_log(resource_type, resource_id, created_at)`,
}

// migrate applies the schema.
func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i, stmt := range migrations {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	return nil
}
