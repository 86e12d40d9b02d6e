// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/validation"
)

// ListUsers handles GET /api/v1/users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	users, err := h.store.Users.ListUsers(r.Context())
	if err != nil {
		rw.FromError(err)
		return
	}

	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	rw.Success(out)
}

// GetUser handles GET /api/v1/users/{id}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, err := h.store.Users.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(user.Sanitized())
}

// CreateUser handles POST /api/v1/users.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	actor, _ := subject(r)

	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
	if err != nil {
		rw.InternalError(err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: hash,
		Active:       true,
	}
	if err := h.store.Users.CreateUser(ctx, user); err != nil {
		rw.FromError(err)
		return
	}

	h.audit.Record(ctx, actor, audit.ActionUserCreated, audit.ResourceUser, user.ID, user.Email)
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User created")
	rw.Created(user.Sanitized())
}

// UpdateUser handles PUT /api/v1/users/{id}. Role changes and
// deactivation may not target the acting admin's own account.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	actor, _ := subject(r)
	id := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	user, err := h.store.Users.GetUserByID(ctx, id)
	if err != nil {
		rw.FromError(err)
		return
	}

	if req.Role != user.Role {
		if err := authz.CheckUserTarget(actor, id, authz.UserOpChangeRole); err != nil {
			rw.FromError(err)
			return
		}
	}
	if !*req.Active && user.Active {
		if err := authz.CheckUserTarget(actor, id, authz.UserOpDeactivate); err != nil {
			rw.FromError(err)
			return
		}
	}

	deactivated := user.Active && !*req.Active
	user.Email = req.Email
	user.Name = req.Name
	user.Role = req.Role
	user.Active = *req.Active

	if err := h.store.Users.UpdateUser(ctx, user); err != nil {
		rw.FromError(err)
		return
	}

	if deactivated {
		h.audit.Record(ctx, actor, audit.ActionUserDeactivated, audit.ResourceUser, user.ID, "")
	}
	rw.Success(user.Sanitized())
}

// DeactivateUser handles POST /api/v1/users/{id}/deactivate.
func (h *Handlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	actor, _ := subject(r)
	id := chi.URLParam(r, "id")

	if err := authz.CheckUserTarget(actor, id, authz.UserOpDeactivate); err != nil {
		rw.FromError(err)
		return
	}
	if err := h.store.Users.SetActive(ctx, id, false); err != nil {
		rw.FromError(err)
		return
	}

	h.audit.Record(ctx, actor, audit.ActionUserDeactivated, audit.ResourceUser, id, "")
	rw.Success(map[string]string{"message": "User deactivated"})
}

// DeleteUser handles DELETE /api/v1/users/{id}. A user who still
// creates or leads projects cannot be removed; those projects must be
// reassigned or deleted first.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	actor, _ := subject(r)
	id := chi.URLParam(r, "id")

	if err := authz.CheckUserTarget(actor, id, authz.UserOpDelete); err != nil {
		rw.FromError(err)
		return
	}

	involved, err := h.store.Projects.CountProjectsInvolving(ctx, id)
	if err != nil {
		rw.FromError(err)
		return
	}
	if involved > 0 {
		rw.Conflict("User still owns or leads projects; reassign or delete them first")
		return
	}

	if err := h.store.Users.DeleteUser(ctx, id); err != nil {
		rw.FromError(err)
		return
	}

	h.audit.Record(ctx, actor, audit.ActionUserDeleted, audit.ResourceUser, id, "")
	logging.Ctx(ctx).Info().Str("user_id", id).Msg("User deleted")
	rw.NoContent()
}

// ResetUserPassword handles POST /api/v1/users/{id}/reset-password.
// Admins may reset their own password here as well; only destructive
// operations carry the self-targeting guard.
func (h *Handlers) ResetUserPassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	actor, _ := subject(r)
	id := chi.URLParam(r, "id")

	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, h.cfg.Security.BcryptCost)
	if err != nil {
		rw.InternalError(err)
		return
	}
	if err := h.store.Users.UpdatePassword(ctx, id, hash, time.Now().UTC()); err != nil {
		rw.FromError(err)
		return
	}

	h.audit.Record(ctx, actor, audit.ActionPasswordReset, audit.ResourceUser, id, "")
	rw.Success(map[string]string{"message": "Password reset"})
}
