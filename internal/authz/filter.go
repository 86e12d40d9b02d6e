// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package authz

import (
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/models"
)

// ProjectScope restricts a project listing to what the subject may
// see. The store translates a scope into WHERE clauses; Matches mirrors
// the same predicate for in-memory slices.
type ProjectScope struct {
	// All disables filtering (admin).
	All bool

	// OwnerOrLeadID limits rows to projects created or led by this
	// subject (project-lead).
	OwnerOrLeadID string

	// DeveloperID limits rows to projects this subject is assigned to
	// (developer).
	DeveloperID string
}

// ProjectScopeFor returns the listing scope for the subject.
func ProjectScopeFor(s auth.Subject) ProjectScope {
	switch s.Role {
	case models.RoleAdmin:
		return ProjectScope{All: true}
	case models.RoleProjectLead:
		return ProjectScope{OwnerOrLeadID: s.ID}
	default:
		return ProjectScope{DeveloperID: s.ID}
	}
}

// Matches reports whether the project falls inside the scope.
func (sc ProjectScope) Matches(p *models.Project) bool {
	if p == nil {
		return false
	}
	if sc.All {
		return true
	}
	if sc.OwnerOrLeadID != "" {
		return p.IsOwnedOrLedBy(sc.OwnerOrLeadID)
	}
	if sc.DeveloperID != "" {
		return p.HasDeveloper(sc.DeveloperID)
	}
	return false
}

// DocumentScope restricts a document listing within one project.
type DocumentScope struct {
	// All disables filtering: admin, or a lead who owns or leads the
	// parent project, sees every document in it.
	All bool

	// AccessUserID limits rows to documents whose access list contains
	// this subject.
	AccessUserID string
}

// DocumentScopeFor returns the document listing scope for the subject
// within the given project.
func DocumentScopeFor(s auth.Subject, project *models.Project) DocumentScope {
	if s.Role == models.RoleAdmin {
		return DocumentScope{All: true}
	}
	if s.Role == models.RoleProjectLead && project != nil && project.IsOwnedOrLedBy(s.ID) {
		return DocumentScope{All: true}
	}
	return DocumentScope{AccessUserID: s.ID}
}

// Matches reports whether the document falls inside the scope.
func (sc DocumentScope) Matches(d *models.Document) bool {
	if d == nil {
		return false
	}
	if sc.All {
		return true
	}
	return sc.AccessUserID != "" && d.GrantsAccessTo(sc.AccessUserID)
}
