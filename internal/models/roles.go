// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Package models defines the core domain types shared across Crewdeck:
// users, projects, documents, project messages, and audit records.
package models

// User roles. Every user holds exactly one.
const (
	// RoleAdmin has unrestricted access to all resources and is the only
	// role permitted to manage user accounts.
	RoleAdmin = "admin"

	// RoleProjectLead can create projects and manage the projects it
	// created or leads, including their documents and completion reviews.
	RoleProjectLead = "project-lead"

	// RoleDeveloper works on assigned projects and may raise completion
	// requests; it never mutates project structure or documents.
	RoleDeveloper = "developer"
)

// ValidRoles lists all assignable roles.
var ValidRoles = []string{RoleAdmin, RoleProjectLead, RoleDeveloper}

// IsValidRole reports whether role is one of the assignable roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleProjectLead, RoleDeveloper:
		return true
	}
	return false
}
