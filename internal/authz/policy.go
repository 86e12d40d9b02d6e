// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package authz

import (
	"errors"

	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/models"
)

// ErrSelfTargeting is returned when an admin directs a destructive
// user-management operation at their own account.
var ErrSelfTargeting = errors.New("operation may not target your own account")

// DocumentInProject pairs a document with its parent project for gates
// that need both.
type DocumentInProject struct {
	Document *models.Document
	Project  *models.Project
}

// adminBypass composes the admin early-return onto a resource gate.
// It is the only place the admin role is granted resource access, so
// individual rules never re-check it.
func adminBypass[R any](rule func(auth.Subject, R) bool) func(auth.Subject, R) bool {
	return func(subject auth.Subject, resource R) bool {
		if subject.Role == models.RoleAdmin {
			return true
		}
		return rule(subject, resource)
	}
}

// CanReadProject reports whether the subject may view the project.
// Leads see projects they created or lead; developers see projects
// they are assigned to.
var CanReadProject = adminBypass(func(s auth.Subject, p *models.Project) bool {
	if p == nil {
		return false
	}
	switch s.Role {
	case models.RoleProjectLead:
		return p.IsOwnedOrLedBy(s.ID)
	case models.RoleDeveloper:
		return p.HasDeveloper(s.ID)
	default:
		return false
	}
})

// CanModifyProject reports whether the subject may update the project
// or change its lead and developer assignments. Developers never may,
// regardless of assignment.
var CanModifyProject = adminBypass(func(s auth.Subject, p *models.Project) bool {
	if p == nil {
		return false
	}
	return s.Role == models.RoleProjectLead && p.IsOwnedOrLedBy(s.ID)
})

// CanDeleteProject reports whether the subject may delete the project.
// Admin only; deletion cascades to the project's documents.
var CanDeleteProject = adminBypass(func(_ auth.Subject, _ *models.Project) bool {
	return false
})

// CanUploadDocument reports whether the subject may upload documents
// into the project.
var CanUploadDocument = adminBypass(func(s auth.Subject, p *models.Project) bool {
	if p == nil {
		return false
	}
	return s.Role == models.RoleProjectLead && p.IsOwnedOrLedBy(s.ID)
})

// CanReadDocument reports whether the subject may view or download the
// document. Non-admin access requires membership in the access list
// snapshotted at upload time; assignment to the parent project after
// the upload does not grant access by itself.
var CanReadDocument = adminBypass(func(s auth.Subject, d *models.Document) bool {
	return d != nil && d.GrantsAccessTo(s.ID)
})

// CanManageDocumentAccess reports whether the subject may replace the
// document's access list.
var CanManageDocumentAccess = adminBypass(func(s auth.Subject, dp DocumentInProject) bool {
	if dp.Project == nil {
		return false
	}
	return s.Role == models.RoleProjectLead && dp.Project.IsOwnedOrLedBy(s.ID)
})

// CanDeleteDocument reports whether the subject may delete the
// document: the uploader, or a lead who owns or leads the parent
// project.
var CanDeleteDocument = adminBypass(func(s auth.Subject, dp DocumentInProject) bool {
	if dp.Document == nil {
		return false
	}
	if dp.Document.UploadedBy == s.ID {
		return true
	}
	if dp.Project == nil {
		return false
	}
	return s.Role == models.RoleProjectLead && dp.Project.IsOwnedOrLedBy(s.ID)
})

// CanSendMessage reports whether the subject may post a plain message
// to the project. Anyone who can read the project can write to its
// thread.
var CanSendMessage = adminBypass(func(s auth.Subject, p *models.Project) bool {
	return CanReadProject(s, p)
})

// CanRequestCompletion reports whether the subject may file a
// completion request for the project. Requests are a developer
// gesture toward the lead, so only assigned developers may file one;
// admins and leads mark projects complete directly.
func CanRequestCompletion(s auth.Subject, p *models.Project) bool {
	if p == nil {
		return false
	}
	return s.Role == models.RoleDeveloper && p.HasDeveloper(s.ID)
}

// CanReviewCompletion reports whether the subject may approve or
// reject a completion request on the project.
var CanReviewCompletion = adminBypass(func(s auth.Subject, p *models.Project) bool {
	if p == nil {
		return false
	}
	return s.Role == models.RoleProjectLead && p.IsOwnedOrLedBy(s.ID)
})

// CanManageUsers reports whether the subject may use the
// user-management surface at all. The route gate enforces this too;
// the function exists so controllers can assert it without a router.
func CanManageUsers(s auth.Subject) bool {
	return s.Role == models.RoleAdmin
}

// DestructiveUserOps are the user-management operations that must not
// target the acting admin's own account.
const (
	UserOpDelete     = "delete"
	UserOpDeactivate = "deactivate"
	UserOpChangeRole = "change-role"
)

// CheckUserTarget rejects destructive self-targeting: an admin cannot
// delete or deactivate their own account, or change their own role.
// Profile updates and password resets on oneself remain allowed.
func CheckUserTarget(actor auth.Subject, targetID, op string) error {
	if actor.ID != targetID {
		return nil
	}
	switch op {
	case UserOpDelete, UserOpDeactivate, UserOpChangeRole:
		return ErrSelfTargeting
	default:
		return nil
	}
}
