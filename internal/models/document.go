// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package models

import "time"

// Document classifications.
const (
	ClassificationPublic       = "public"
	ClassificationInternal     = "internal"
	ClassificationConfidential = "confidential"
	ClassificationSecret       = "secret"
)

// IsValidClassification reports whether c is a known classification.
func IsValidClassification(c string) bool {
	switch c {
	case ClassificationPublic, ClassificationInternal, ClassificationConfidential, ClassificationSecret:
		return true
	}
	return false
}

// MaxDocumentSize bounds uploaded document size (25 MiB).
const MaxDocumentSize = 25 << 20

// AllowedContentTypes whitelists document content types at upload.
var AllowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/zip":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
	"text/plain":    true,
	"text/csv":      true,
	"text/markdown": true,
	"image/png":     true,
	"image/jpeg":    true,
	"image/svg+xml": true,
}

// DocumentAccess is one entry of a document's explicit access list:
// the user granted access and the role they held at grant time.
// Admins have implicit access and are never stored in the list.
type DocumentAccess struct {
	UserID      string `json:"user_id"`
	RoleAtGrant string `json:"role_at_grant"`
}

// Document is a file attached to a project. The stored name is a
// server-generated random name; the original display name is kept for
// presentation only and never used as a filesystem path.
type Document struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	StoredName   string `json:"stored_name"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`

	// Checksum is the hex SHA-256 digest of the content.
	Checksum string `json:"checksum"`

	Classification string `json:"classification"`
	UploadedBy     string `json:"uploaded_by"`

	// AccessibleBy is snapshotted from the parent project's lead and
	// assigned developers at upload time. Later project assignments do
	// not retro-grant access; the list must be replaced explicitly.
	AccessibleBy []DocumentAccess `json:"accessible_by"`

	CreatedAt time.Time `json:"created_at"`
}

// GrantsAccessTo reports whether userID is in the explicit access list.
func (d *Document) GrantsAccessTo(userID string) bool {
	for _, a := range d.AccessibleBy {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
