// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package models

import "time"

// Project statuses.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on-hold"
	ProjectCancelled = "cancelled"
)

// Project priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// IsValidProjectStatus reports whether s is a known project status.
func IsValidProjectStatus(s string) bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold, ProjectCancelled:
		return true
	}
	return false
}

// IsValidPriority reports whether p is a known project priority.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Project is the top-level resource. All ownership relations point from
// the project toward users by id; users hold no back-references.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`

	// CreatedBy is immutable after creation.
	CreatedBy string `json:"created_by"`

	// ProjectLead must hold the admin or project-lead role. Empty only
	// transiently before first assignment.
	ProjectLead string `json:"project_lead"`

	// AssignedDevelopers lists developer user ids working the project.
	AssignedDevelopers []string `json:"assigned_developers"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDeveloper reports whether userID is in the assigned developer set.
func (p *Project) HasDeveloper(userID string) bool {
	for _, id := range p.AssignedDevelopers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsOwnedOrLedBy reports whether userID created or leads the project.
func (p *Project) IsOwnedOrLedBy(userID string) bool {
	return userID != "" && (p.CreatedBy == userID || p.ProjectLead == userID)
}
