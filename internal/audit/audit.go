// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Package audit records who did what to which resource. Entries are
// append-only timestamped rows: they give traceability for document
// access and denied operations, not cryptographic non-repudiation.
package audit

import (
	"context"

	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/models"
)

// Actions recorded by the controllers.
const (
	ActionDocumentView     = "document.view"
	ActionDocumentDownload = "document.download"
	ActionDocumentUpload   = "document.upload"
	ActionDocumentDelete   = "document.delete"
	ActionAccessDenied     = "access.denied"
	ActionLoginFailed      = "login.failed"
	ActionLoginLocked      = "login.locked"
	ActionUserCreated      = "user.created"
	ActionUserDeleted      = "user.deleted"
	ActionUserDeactivated  = "user.deactivated"
	ActionPasswordReset    = "user.password_reset"
)

// Resource types referenced by audit entries.
const (
	ResourceDocument = "document"
	ResourceProject  = "project"
	ResourceMessage  = "message"
	ResourceUser     = "user"
)

// Sink is where entries land; satisfied by store.AuditStore.
type Sink interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

// Recorder writes audit entries. A failed write is logged and
// swallowed: auditing never turns a successful operation into a
// failed response.
type Recorder struct {
	sink Sink
}

// NewRecorder creates a recorder over the given sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record appends one entry for an authenticated actor.
func (r *Recorder) Record(ctx context.Context, actor auth.Subject, action, resourceType, resourceID, detail string) {
	r.append(ctx, &models.AuditEntry{
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	})
}

// RecordAnonymous appends one entry with no authenticated actor, used
// for pre-authentication events such as failed logins.
func (r *Recorder) RecordAnonymous(ctx context.Context, actorEmail, action, resourceType, resourceID, detail string) {
	r.append(ctx, &models.AuditEntry{
		ActorEmail:   actorEmail,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	})
}

func (r *Recorder) append(ctx context.Context, e *models.AuditEntry) {
	if err := r.sink.Append(ctx, e); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("action", e.Action).
			Str("resource_type", e.ResourceType).
			Str("resource_id", e.ResourceID).
			Msg("Failed to write audit entry")
	}
}
