// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package models

import "time"

// Message types. A completion-request transitions exactly once to
// completion-approved or completion-rejected when reviewed.
const (
	MessagePlain              = "message"
	MessageCompletionRequest  = "completion-request"
	MessageCompletionApproved = "completion-approved"
	MessageCompletionRejected = "completion-rejected"
)

// IsValidMessageType reports whether t is a known message type.
func IsValidMessageType(t string) bool {
	switch t {
	case MessagePlain, MessageCompletionRequest, MessageCompletionApproved, MessageCompletionRejected:
		return true
	}
	return false
}

// Message is a project communication entry. Completion requests carry
// review state; plain messages never do.
type Message struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Type      string `json:"type"`

	// ReviewedBy is set exactly once, by the reviewing admin or lead.
	// A completion-request with nil ReviewedBy is outstanding.
	ReviewedBy     *string    `json:"reviewed_by,omitempty"`
	ReviewResponse string     `json:"review_response,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsOutstandingRequest reports whether the message is an unreviewed
// completion request.
func (m *Message) IsOutstandingRequest() bool {
	return m.Type == MessageCompletionRequest && m.ReviewedBy == nil
}
