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

	"github.com/crewdeck/crewdeck/internal/models"
)

// MessageStore persists project messages and the completion-request
// workflow.
type MessageStore struct {
	db *sql.DB
}

const messageColumns = `id, project_id, sender_id, content, type,
	reviewed_by, review_response, reviewed_at, created_at`

// CreateMessage inserts a message. For completion requests the partial
// unique index enforces at most one unreviewed request per project;
// a violation maps to ErrOutstandingRequest.
func (s *MessageStore) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, project_id, sender_id, content, type,
			reviewed_by, review_response, reviewed_at, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, '', NULL, ?)`,
		m.ID, m.ProjectID, m.SenderID, m.Content, m.Type, m.CreatedAt,
	)
	if isUniqueViolation(err, "messages.project_id") {
		return ErrOutstandingRequest
	}
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetMessage loads one message.
func (s *MessageStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

func scanMessage(row *sql.Row) (*models.Message, error) {
	var m models.Message
	var reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.Content, &m.Type,
		&reviewedBy, &m.ReviewResponse, &reviewedAt, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	if reviewedBy.Valid {
		m.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		m.ReviewedAt = &reviewedAt.Time
	}
	return &m, nil
}

// ListByProject returns the project's messages oldest first.
func (s *MessageStore) ListByProject(ctx context.Context, projectID string) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		var reviewedBy sql.NullString
		var reviewedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.Content,
			&m.Type, &reviewedBy, &m.ReviewResponse, &reviewedAt,
			&m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if reviewedBy.Valid {
			m.ReviewedBy = &reviewedBy.String
		}
		if reviewedAt.Valid {
			m.ReviewedAt = &reviewedAt.Time
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// OutstandingRequest returns the project's unreviewed completion
// request, or ErrNotFound if none exists.
func (s *MessageStore) OutstandingRequest(ctx context.Context, projectID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE project_id = ? AND type = ? AND reviewed_by IS NULL`,
		projectID, models.MessageCompletionRequest)
	return scanMessage(row)
}

// ReviewCompletionRequest applies the terminal review transition. The
// conditional UPDATE targets only an unreviewed completion-request
// row, so of two concurrent reviews the first writer wins and the
// second gets ErrAlreadyReviewed. Approval also flips the parent
// project's status to completed, in the same transaction.
func (s *MessageStore) ReviewCompletionRequest(ctx context.Context, messageID, reviewerID string, approved bool, response string) (*models.Message, error) {
	newType := models.MessageCompletionRejected
	if approved {
		newType = models.MessageCompletionApproved
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET type = ?, reviewed_by = ?, review_response = ?, reviewed_at = ?
		WHERE id = ? AND type = ? AND reviewed_by IS NULL`,
		newType, reviewerID, response, now,
		messageID, models.MessageCompletionRequest,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to review request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		// Distinguish a missing message from a lost review race.
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM messages WHERE id = ?`, messageID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check message: %w", err)
		}
		if exists == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyReviewed
	}

	var projectID string
	if err := tx.QueryRowContext(ctx,
		`SELECT project_id FROM messages WHERE id = ?`, messageID).Scan(&projectID); err != nil {
		return nil, fmt.Errorf("failed to load project id: %w", err)
	}

	if approved {
		if _, err := tx.ExecContext(ctx,
			`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
			models.ProjectCompleted, now, projectID,
		); err != nil {
			return nil, fmt.Errorf("failed to complete project: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	return s.GetMessage(ctx, messageID)
}
