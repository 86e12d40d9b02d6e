// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/store"
	"github.com/crewdeck/crewdeck/internal/validation"
)

// denyProject answers a failed resource gate. A subject who can read
// the project gets 403 and an audit row; anyone else gets 404 so the
// project's existence is not disclosed.
func (h *Handlers) denyProject(rw *ResponseWriter, r *http.Request, sub auth.Subject, p *models.Project) {
	if authz.CanReadProject(sub, p) {
		h.audit.Record(r.Context(), sub, audit.ActionAccessDenied, audit.ResourceProject, p.ID, r.Method+" "+r.URL.Path)
		rw.Forbidden("You do not have permission to perform this action")
		return
	}
	rw.NotFound("Resource not found")
}

// loadProject fetches the project named by the {id} URL parameter.
func (h *Handlers) loadProject(r *http.Request) (*models.Project, error) {
	return h.store.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
}

// validateAssignments enforces the role invariants on an assignment
// set: the lead must hold the project-lead or admin role, and every
// assigned developer must hold the developer role. Roles are checked
// at assignment time only; later role changes do not rewrite existing
// assignments.
func (h *Handlers) validateAssignments(ctx context.Context, lead string, developers []string) error {
	if lead != "" {
		u, err := h.store.Users.GetUserByID(ctx, lead)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("project lead %s does not exist", lead)
			}
			return err
		}
		if u.Role != models.RoleProjectLead && u.Role != models.RoleAdmin {
			return fmt.Errorf("user %s cannot lead a project with role %s", lead, u.Role)
		}
	}
	for _, id := range developers {
		u, err := h.store.Users.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("developer %s does not exist", id)
			}
			return err
		}
		if u.Role != models.RoleDeveloper {
			return fmt.Errorf("user %s cannot be assigned as developer with role %s", id, u.Role)
		}
	}
	return nil
}

// ListProjects handles GET /api/v1/projects. The listing is scoped,
// never 403: each subject sees exactly the projects they may read.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sub, _ := subject(r)

	projects, err := h.store.Projects.ListProjects(r.Context(), authz.ProjectScopeFor(sub))
	if err != nil {
		rw.FromError(err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	rw.Success(projects)
}

// CreateProject handles POST /api/v1/projects. A lead creating a
// project without naming a lead becomes its lead.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	var req CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	lead := req.ProjectLead
	if lead == "" && sub.Role == models.RoleProjectLead {
		lead = sub.ID
	}
	if err := h.validateAssignments(ctx, lead, req.AssignedDevelopers); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	project := &models.Project{
		Name:               req.Name,
		Description:        req.Description,
		Deadline:           req.Deadline,
		Status:             models.ProjectActive,
		Priority:           req.Priority,
		CreatedBy:          sub.ID,
		ProjectLead:        lead,
		AssignedDevelopers: req.AssignedDevelopers,
	}
	if err := h.store.Projects.CreateProject(ctx, project); err != nil {
		rw.FromError(err)
		return
	}

	logging.Ctx(ctx).Info().Str("project_id", project.ID).Msg("Project created")
	rw.Created(project)
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanReadProject(sub, project) {
		rw.NotFound("Resource not found")
		return
	}
	rw.Success(project)
}

// UpdateProject handles PUT /api/v1/projects/{id}.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanModifyProject(sub, project) {
		h.denyProject(rw, r, sub, project)
		return
	}

	var req UpdateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	project.Deadline = req.Deadline
	project.Status = req.Status
	project.Priority = req.Priority

	if err := h.store.Projects.UpdateProject(ctx, project); err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(project)
}

// SetProjectAssignments handles PUT /api/v1/projects/{id}/assignments.
func (h *Handlers) SetProjectAssignments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanModifyProject(sub, project) {
		h.denyProject(rw, r, sub, project)
		return
	}

	var req AssignmentsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}
	if err := h.validateAssignments(ctx, req.ProjectLead, req.AssignedDevelopers); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	if err := h.store.Projects.SetAssignments(ctx, project.ID, req.ProjectLead, req.AssignedDevelopers); err != nil {
		rw.FromError(err)
		return
	}

	project, err = h.store.Projects.GetProject(ctx, project.ID)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(project)
}

// DeleteProject handles DELETE /api/v1/projects/{id}. Rows cascade in
// the database; document blobs are removed from disk afterwards.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanDeleteProject(sub, project) {
		h.denyProject(rw, r, sub, project)
		return
	}

	documents, err := h.store.Documents.ListByProject(ctx, project.ID, authz.DocumentScope{All: true})
	if err != nil {
		rw.FromError(err)
		return
	}

	if err := h.store.Projects.DeleteProject(ctx, project.ID); err != nil {
		rw.FromError(err)
		return
	}

	for _, doc := range documents {
		h.removeBlob(ctx, doc)
	}

	logging.Ctx(ctx).Info().Str("project_id", project.ID).Msg("Project deleted")
	rw.NoContent()
}
