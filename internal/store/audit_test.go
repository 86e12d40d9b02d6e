// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/models"
)

func TestAuditStore_AppendAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []*models.AuditEntry{
		{ActorID: "u1", ActorEmail: "a@example.com", Action: "document.download", ResourceType: "document", ResourceID: "d1"},
		{ActorID: "u2", ActorEmail: "b@example.com", Action: "document.view", ResourceType: "document", ResourceID: "d1"},
		{ActorID: "u1", ActorEmail: "a@example.com", Action: "login.denied", ResourceType: "user", ResourceID: "u1", Detail: "account locked"},
	}
	for _, e := range entries {
		require.NoError(t, s.Audit.Append(ctx, e))
		assert.NotZero(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}

	docEntries, err := s.Audit.ListByResource(ctx, "document", "d1", 10)
	require.NoError(t, err)
	assert.Len(t, docEntries, 2)

	recent, err := s.Audit.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
