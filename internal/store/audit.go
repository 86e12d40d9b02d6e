// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewdeck/crewdeck/internal/models"
)

// AuditStore appends and reads audit records. Rows are never updated
// or deleted through this API.
type AuditStore struct {
	db *sql.DB
}

// Append writes one audit entry.
func (s *AuditStore) Append(ctx context.Context, e *models.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, actor_email, action, resource_type,
			resource_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ActorID, e.ActorEmail, e.Action, e.ResourceType, e.ResourceID,
		e.Detail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// ListByResource returns entries for one resource, newest first.
func (s *AuditStore) ListByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_email, action, resource_type, resource_id, detail, created_at
		FROM audit_log
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		resourceType, resourceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanAuditRows(rows)
}

// ListRecent returns the newest entries across all resources.
func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_email, action, resource_type, resource_id, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
