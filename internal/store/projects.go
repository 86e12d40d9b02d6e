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

// ProjectStore persists projects and their developer assignments.
type ProjectStore struct {
	db *sql.DB
}

const projectColumns = `id, name, description, deadline, status, priority,
	created_by, project_lead, created_at, updated_at`

// CreateProject inserts a project and its initial developer set.
func (s *ProjectStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, deadline, status, priority,
			created_by, project_lead, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Deadline, p.Status, p.Priority,
		p.CreatedBy, p.ProjectLead, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if err := replaceDevelopers(ctx, tx, p.ID, p.AssignedDevelopers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	return nil
}

// GetProject loads a project with its developer assignments.
func (s *ProjectStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)

	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Deadline, &p.Status,
		&p.Priority, &p.CreatedBy, &p.ProjectLead, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	devs, err := s.developersFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.AssignedDevelopers = devs
	return &p, nil
}

// ListProjects returns projects visible inside the scope, newest first.
func (s *ProjectStore) ListProjects(ctx context.Context, scope authz.ProjectScope) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []interface{}

	switch {
	case scope.All:
	case scope.OwnerOrLeadID != "":
		query += ` WHERE created_by = ? OR project_lead = ?`
		args = append(args, scope.OwnerOrLeadID, scope.OwnerOrLeadID)
	case scope.DeveloperID != "":
		query += ` WHERE id IN (SELECT project_id FROM project_developers WHERE user_id = ?)`
		args = append(args, scope.DeveloperID)
	default:
		return nil, nil
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Deadline,
			&p.Status, &p.Priority, &p.CreatedBy, &p.ProjectLead,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range projects {
		devs, err := s.developersFor(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.AssignedDevelopers = devs
	}
	return projects, nil
}

// UpdateProject updates the mutable attribute fields. Ownership and
// assignments change through SetAssignments.
func (s *ProjectStore) UpdateProject(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, deadline = ?,
			status = ?, priority = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Deadline, p.Status, p.Priority, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRow(res)
}

// SetAssignments replaces the lead and the developer set in one
// transaction.
func (s *ProjectStore) SetAssignments(ctx context.Context, projectID, lead string, developers []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET project_lead = ?, updated_at = ? WHERE id = ?`,
		lead, time.Now().UTC(), projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to set project lead: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM project_developers WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	if err := replaceDevelopers(ctx, tx, projectID, developers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignments: %w", err)
	}
	return nil
}

// SetStatus updates only the status field. ReviewCompletionRequest
// uses its own transactional path; this serves direct status edits.
func (s *ProjectStore) SetStatus(ctx context.Context, projectID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to set project status: %w", err)
	}
	return requireRow(res)
}

// CountProjectsInvolving returns how many projects the user created or
// leads. User deletion is refused while this is non-zero.
func (s *ProjectStore) CountProjectsInvolving(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE created_by = ? OR project_lead = ?`,
		userID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count project involvement: %w", err)
	}
	return n, nil
}

// DeleteProject removes a project. Documents, assignments, and
// messages cascade via foreign keys; document blobs on disk are the
// caller's responsibility.
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(res)
}

func (s *ProjectStore) developersFor(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM project_developers WHERE project_id = ? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var devs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		devs = append(devs, id)
	}
	return devs, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func replaceDevelopers(ctx context.Context, tx execer, projectID string, developers []string) error {
	for _, userID := range developers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO project_developers (project_id, user_id) VALUES (?, ?)`,
			projectID, userID,
		)
		if isUniqueViolation(err, "project_developers") {
			return ErrDeveloperAssignment
		}
		if err != nil {
			return fmt.Errorf("failed to assign developer %s: %w", userID, err)
		}
	}
	return nil
}
