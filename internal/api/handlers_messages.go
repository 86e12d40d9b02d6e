// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/validation"
)

// ListMessages handles GET /api/v1/projects/{id}/messages. Everyone
// who can read the project sees the full thread, review state
// included.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
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

	messages, err := h.store.Messages.ListByProject(r.Context(), project.ID)
	if err != nil {
		rw.FromError(err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	rw.Success(messages)
}

// SendMessage handles POST /api/v1/projects/{id}/messages. Plain
// messages need read access; completion requests are restricted to
// assigned developers and to one outstanding request per project.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanSendMessage(sub, project) {
		rw.NotFound("Resource not found")
		return
	}

	var req SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	if req.Type == models.MessageCompletionRequest {
		if !authz.CanRequestCompletion(sub, project) {
			h.denyProject(rw, r, sub, project)
			return
		}
		if project.Status != models.ProjectActive {
			rw.Conflict("Completion can only be requested on an active project")
			return
		}
	}

	message := &models.Message{
		ProjectID: project.ID,
		SenderID:  sub.ID,
		Content:   req.Content,
		Type:      req.Type,
	}
	if err := h.store.Messages.CreateMessage(ctx, message); err != nil {
		rw.FromError(err)
		return
	}

	if message.Type == models.MessageCompletionRequest {
		logging.Ctx(ctx).Info().
			Str("project_id", project.ID).
			Str("message_id", message.ID).
			Msg("Completion requested")
	}
	rw.Created(message)
}

// ReviewCompletionRequest handles POST /api/v1/messages/{id}/review.
// The store applies the transition exactly once; a second review of
// the same request gets a conflict.
func (h *Handlers) ReviewCompletionRequest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	message, err := h.store.Messages.GetMessage(ctx, chi.URLParam(r, "id"))
	if err != nil {
		rw.FromError(err)
		return
	}
	project, err := h.store.Projects.GetProject(ctx, message.ProjectID)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanReviewCompletion(sub, project) {
		h.denyProject(rw, r, sub, project)
		return
	}

	var req ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	reviewed, err := h.store.Messages.ReviewCompletionRequest(ctx, message.ID, sub.ID, *req.Approved, req.Response)
	if err != nil {
		rw.FromError(err)
		return
	}

	logging.Ctx(ctx).Info().
		Str("project_id", project.ID).
		Str("message_id", reviewed.ID).
		Bool("approved", *req.Approved).
		Msg("Completion request reviewed")
	rw.Success(reviewed)
}
