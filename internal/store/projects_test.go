// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/models"
)

func seedTeam(t *testing.T, s *Store) {
	t.Helper()
	seedUser(t, s, "admin-1", "admin@example.com", models.RoleAdmin)
	seedUser(t, s, "lead-1", "lead1@example.com", models.RoleProjectLead)
	seedUser(t, s, "lead-2", "lead2@example.com", models.RoleProjectLead)
	seedUser(t, s, "dev-1", "dev1@example.com", models.RoleDeveloper)
	seedUser(t, s, "dev-2", "dev2@example.com", models.RoleDeveloper)
}

func TestProjectStore_CreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTeam(t, s)

	seedProject(t, s, "p1", "admin-1", "lead-1", []string{"dev-1", "dev-2"})

	got, err := s.Projects.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", got.ProjectLead)
	assert.ElementsMatch(t, []string{"dev-1", "dev-2"}, got.AssignedDevelopers)

	_, err = s.Projects.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectStore_ListScoped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTeam(t, s)

	seedProject(t, s, "p1", "admin-1", "lead-1", []string{"dev-1"})
	seedProject(t, s, "p2", "lead-2", "lead-2", nil)
	seedProject(t, s, "p3", "lead-1", "lead-2", []string{"dev-2"})

	all, err := s.Projects.ListProjects(ctx, authz.ProjectScope{All: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// lead-1 leads p1 and created p3.
	leadRows, err := s.Projects.ListProjects(ctx, authz.ProjectScope{OwnerOrLeadID: "lead-1"})
	require.NoError(t, err)
	assert.Len(t, leadRows, 2)

	devRows, err := s.Projects.ListProjects(ctx, authz.ProjectScope{DeveloperID: "dev-1"})
	require.NoError(t, err)
	require.Len(t, devRows, 1)
	assert.Equal(t, "p1", devRows[0].ID)

	none, err := s.Projects.ListProjects(ctx, authz.ProjectScope{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProjectStore_SetAssignments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTeam(t, s)
	seedProject(t, s, "p1", "admin-1", "lead-1", []string{"dev-1"})

	require.NoError(t, s.Projects.SetAssignments(ctx, "p1", "lead-2", []string{"dev-2"}))

	got, err := s.Projects.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "lead-2", got.ProjectLead)
	assert.Equal(t, []string{"dev-2"}, got.AssignedDevelopers)

	assert.ErrorIs(t,
		s.Projects.SetAssignments(ctx, "missing", "lead-1", nil), ErrNotFound)
}

func TestProjectStore_UpdateAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedTeam(t, s)
	p := seedProject(t, s, "p1", "admin-1", "lead-1", []string{"dev-1"})

	p.Name = "Renamed"
	p.Status = models.ProjectOnHold
	p.Priority = models.PriorityCritical
	require.NoError(t, s.Projects.UpdateProject(ctx, p))

	got, err := s.Projects.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, models.ProjectOnHold, got.Status)

	// Deleting the project cascades to assignments, documents, messages.
	require.NoError(t, s.Projects.DeleteProject(ctx, "p1"))
	_, err = s.Projects.GetProject(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	var leftover int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM project_developers WHERE project_id = 'p1'`).Scan(&leftover))
	assert.Zero(t, leftover)
}
