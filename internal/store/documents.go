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

	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/models"
)

// DocumentStore persists document metadata and access lists. The file
// content itself lives on disk under the configured storage directory.
type DocumentStore struct {
	db *sql.DB
}

const documentColumns = `id, project_id, stored_name, original_name, size,
	content_type, checksum, classification, uploaded_by, created_at`

// CreateDocument inserts the document and its access-list snapshot in
// one transaction.
func (s *DocumentStore) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, stored_name, original_name, size,
			content_type, checksum, classification, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.StoredName, d.OriginalName, d.Size,
		d.ContentType, d.Checksum, d.Classification, d.UploadedBy, d.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	if err := insertAccessList(ctx, tx, d.ID, d.AccessibleBy); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// GetDocument loads a document with its access list.
func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)

	var d models.Document
	err := row.Scan(&d.ID, &d.ProjectID, &d.StoredName, &d.OriginalName,
		&d.Size, &d.ContentType, &d.Checksum, &d.Classification,
		&d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	access, err := s.accessListFor(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	d.AccessibleBy = access
	return &d, nil
}

// ListByProject returns the project's documents visible inside the
// scope, newest first.
func (s *DocumentStore) ListByProject(ctx context.Context, projectID string, scope authz.DocumentScope) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE project_id = ?`
	args := []interface{}{projectID}

	if !scope.All {
		if scope.AccessUserID == "" {
			return nil, nil
		}
		query += ` AND id IN (SELECT document_id FROM document_access WHERE user_id = ?)`
		args = append(args, scope.AccessUserID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.StoredName, &d.OriginalName,
			&d.Size, &d.ContentType, &d.Checksum, &d.Classification,
			&d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range docs {
		access, err := s.accessListFor(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		d.AccessibleBy = access
	}
	return docs, nil
}

// ReplaceAccessList swaps the document's access list for a new one.
func (s *DocumentStore) ReplaceAccessList(ctx context.Context, documentID string, access []models.DocumentAccess) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE id = ?`, documentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check document: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_access WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to clear access list: %w", err)
	}
	if err := insertAccessList(ctx, tx, documentID, access); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit access list: %w", err)
	}
	return nil
}

// DeleteDocument removes the metadata row; access entries cascade.
// The stored blob is deleted by the caller after the row is gone.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRow(res)
}

func (s *DocumentStore) accessListFor(ctx context.Context, documentID string) ([]models.DocumentAccess, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, role_at_grant FROM document_access
		 WHERE document_id = ? ORDER BY user_id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load access list: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var access []models.DocumentAccess
	for rows.Next() {
		var a models.DocumentAccess
		if err := rows.Scan(&a.UserID, &a.RoleAtGrant); err != nil {
			return nil, fmt.Errorf("failed to scan access entry: %w", err)
		}
		access = append(access, a)
	}
	return access, rows.Err()
}

func insertAccessList(ctx context.Context, tx execer, documentID string, access []models.DocumentAccess) error {
	for _, a := range access {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO document_access (document_id, user_id, role_at_grant)
			VALUES (?, ?, ?)`,
			documentID, a.UserID, a.RoleAtGrant,
		); err != nil {
			return fmt.Errorf("failed to grant access to %s: %w", a.UserID, err)
		}
	}
	return nil
}
