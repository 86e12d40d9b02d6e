// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// maxBodySize bounds JSON request bodies. Document uploads use their
// own multipart limit.
const maxBodySize = 1 << 20

// LoginRequest authenticates with email and password.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest proves the current password before replacing it.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// CreateUserRequest creates an account (admin only).
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,role"`
}

// UpdateUserRequest updates profile, role, and active flag.
type UpdateUserRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"required,min=1,max=200"`
	Role   string `json:"role" validate:"required,role"`
	Active *bool  `json:"active" validate:"required"`
}

// ResetPasswordRequest sets a new password for a user (admin only).
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// CreateProjectRequest creates a project.
type CreateProjectRequest struct {
	Name               string    `json:"name" validate:"required,min=1,max=200"`
	Description        string    `json:"description" validate:"max=4000"`
	Deadline           time.Time `json:"deadline" validate:"required"`
	Priority           string    `json:"priority" validate:"required,priority"`
	ProjectLead        string    `json:"project_lead" validate:"omitempty,max=64"`
	AssignedDevelopers []string  `json:"assigned_developers" validate:"dive,required"`
}

// UpdateProjectRequest updates project attributes.
type UpdateProjectRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=200"`
	Description string    `json:"description" validate:"max=4000"`
	Deadline    time.Time `json:"deadline" validate:"required"`
	Status      string    `json:"status" validate:"required,project_status"`
	Priority    string    `json:"priority" validate:"required,priority"`
}

// AssignmentsRequest replaces the project's lead and developer set.
type AssignmentsRequest struct {
	ProjectLead        string   `json:"project_lead" validate:"omitempty,max=64"`
	AssignedDevelopers []string `json:"assigned_developers" validate:"dive,required"`
}

// AccessListRequest replaces a document's access list.
type AccessListRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,dive,required"`
}

// SendMessageRequest posts a message to a project thread.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Type    string `json:"type" validate:"required,oneof=message completion-request"`
}

// ReviewRequest resolves a completion request.
type ReviewRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Response string `json:"response" validate:"max=4000"`
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close() //nolint:errcheck
	return json.NewDecoder(r.Body).Decode(dst)
}
