// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/models"
)

// openTestStore opens an in-memory database with the schema applied.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, id, email, role string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           id,
		Email:        email,
		Name:         "Test " + id,
		Role:         role,
		PasswordHash: "$2a$04$placeholderplaceholderplaceha",
		Active:       true,
	}
	require.NoError(t, s.Users.CreateUser(context.Background(), u))
	return u
}

func seedProject(t *testing.T, s *Store, id, createdBy, lead string, developers []string) *models.Project {
	t.Helper()
	p := &models.Project{
		ID:                 id,
		Name:               "Project " + id,
		Description:        "test project",
		Deadline:           time.Now().UTC().Add(30 * 24 * time.Hour),
		Status:             models.ProjectActive,
		Priority:           models.PriorityMedium,
		CreatedBy:          createdBy,
		ProjectLead:        lead,
		AssignedDevelopers: developers,
	}
	require.NoError(t, s.Projects.CreateProject(context.Background(), p))
	return p
}
