// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/store"
)

// seedTeam creates the standard cast used by the project tests.
func seedTeam(t *testing.T, e *testEnv) {
	t.Helper()
	e.seedUser(t, "admin-1", "admin@example.com", models.RoleAdmin)
	e.seedUser(t, "lead-1", "lead1@example.com", models.RoleProjectLead)
	e.seedUser(t, "lead-2", "lead2@example.com", models.RoleProjectLead)
	e.seedUser(t, "dev-1", "dev1@example.com", models.RoleDeveloper)
	e.seedUser(t, "dev-2", "dev2@example.com", models.RoleDeveloper)
}

func TestProjects_CreateAsLead(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	leadToken := e.tokenFor(t, "lead-1", models.RoleProjectLead)

	rec := e.do(t, http.MethodPost, "/api/v1/projects", leadToken, CreateProjectRequest{
		Name:               "Migration",
		Description:        "Move the data",
		Deadline:           time.Now().UTC().Add(30 * 24 * time.Hour),
		Priority:           models.PriorityHigh,
		AssignedDevelopers: []string{"dev-1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p models.Project
	decodeData(t, rec, &p)
	assert.Equal(t, "lead-1", p.CreatedBy)
	assert.Equal(t, "lead-1", p.ProjectLead, "creating lead becomes the lead by default")
	assert.Equal(t, models.ProjectActive, p.Status)
	assert.Equal(t, []string{"dev-1"}, p.AssignedDevelopers)
}

func TestProjects_CreateDeniedForDeveloper(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	devToken := e.tokenFor(t, "dev-1", models.RoleDeveloper)

	rec := e.do(t, http.MethodPost, "/api/v1/projects", devToken, CreateProjectRequest{
		Name:     "Nope",
		Deadline: time.Now().UTC().Add(time.Hour),
		Priority: models.PriorityLow,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProjects_CreateRejectsRoleMismatch(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	leadToken := e.tokenFor(t, "lead-1", models.RoleProjectLead)

	// A developer cannot be named lead.
	rec := e.do(t, http.MethodPost, "/api/v1/projects", leadToken, CreateProjectRequest{
		Name:        "Bad lead",
		Deadline:    time.Now().UTC().Add(time.Hour),
		Priority:    models.PriorityLow,
		ProjectLead: "dev-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A lead cannot be assigned as developer.
	rec = e.do(t, http.MethodPost, "/api/v1/projects", leadToken, CreateProjectRequest{
		Name:               "Bad developer",
		Deadline:           time.Now().UTC().Add(time.Hour),
		Priority:           models.PriorityLow,
		AssignedDevelopers: []string{"lead-2"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown ids are rejected outright.
	rec = e.do(t, http.MethodPost, "/api/v1/projects", leadToken, CreateProjectRequest{
		Name:               "Ghost developer",
		Deadline:           time.Now().UTC().Add(time.Hour),
		Priority:           models.PriorityLow,
		AssignedDevelopers: []string{"nobody"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjects_ListIsScoped(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")
	e.seedProject(t, "p2", "lead-2", "lead-2", "dev-2")
	e.seedProject(t, "p3", "admin-1", "lead-1")

	cases := []struct {
		name string
		id   string
		role string
		want []string
	}{
		{"admin sees all", "admin-1", models.RoleAdmin, []string{"p1", "p2", "p3"}},
		{"lead sees owned or led", "lead-1", models.RoleProjectLead, []string{"p1", "p3"}},
		{"developer sees assigned", "dev-2", models.RoleDeveloper, []string{"p2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, "/api/v1/projects", e.tokenFor(t, tc.id, tc.role), nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var projects []*models.Project
			decodeData(t, rec, &projects)

			var ids []string
			for _, p := range projects {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tc.want, ids)
		})
	}
}

func TestProjects_GetHidesUnrelatedProjects(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	// Unassigned developer and unrelated lead both get 404, not 403.
	for _, sub := range []struct{ id, role string }{
		{"dev-2", models.RoleDeveloper},
		{"lead-2", models.RoleProjectLead},
	} {
		rec := e.do(t, http.MethodGet, "/api/v1/projects/p1", e.tokenFor(t, sub.id, sub.role), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s should not learn the project exists", sub.id)
	}

	// Assigned developer reads it fine.
	rec := e.do(t, http.MethodGet, "/api/v1/projects/p1", e.tokenFor(t, "dev-1", models.RoleDeveloper), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjects_UpdateRequiresOwnership(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	body := UpdateProjectRequest{
		Name:     "Renamed",
		Deadline: time.Now().UTC().Add(48 * time.Hour),
		Status:   models.ProjectOnHold,
		Priority: models.PriorityCritical,
	}

	// The assigned developer is denied at the route gate.
	rec := e.do(t, http.MethodPut, "/api/v1/projects/p1", e.tokenFor(t, "dev-1", models.RoleDeveloper), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An unrelated lead passes the route gate but fails the resource
	// gate without learning the project exists.
	rec = e.do(t, http.MethodPut, "/api/v1/projects/p1", e.tokenFor(t, "lead-2", models.RoleProjectLead), body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The owning lead succeeds.
	rec = e.do(t, http.MethodPut, "/api/v1/projects/p1", e.tokenFor(t, "lead-1", models.RoleProjectLead), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p models.Project
	decodeData(t, rec, &p)
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, models.ProjectOnHold, p.Status)
}

func TestProjects_AssignmentsReplaceTeam(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")
	leadToken := e.tokenFor(t, "lead-1", models.RoleProjectLead)

	rec := e.do(t, http.MethodPut, "/api/v1/projects/p1/assignments", leadToken, AssignmentsRequest{
		ProjectLead:        "lead-2",
		AssignedDevelopers: []string{"dev-2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p models.Project
	decodeData(t, rec, &p)
	assert.Equal(t, "lead-2", p.ProjectLead)
	assert.Equal(t, []string{"dev-2"}, p.AssignedDevelopers)

	// dev-1 lost visibility with the reassignment.
	rec = e.do(t, http.MethodGet, "/api/v1/projects/p1", e.tokenFor(t, "dev-1", models.RoleDeveloper), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjects_DeleteIsAdminOnly(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	// The owning lead is denied at the route gate.
	rec := e.do(t, http.MethodDelete, "/api/v1/projects/p1", e.tokenFor(t, "lead-1", models.RoleProjectLead), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/v1/projects/p1", e.tokenFor(t, "admin-1", models.RoleAdmin), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := e.store.Projects.GetProject(context.Background(), "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
