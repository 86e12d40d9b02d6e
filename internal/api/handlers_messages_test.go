// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestMessages_ThreadVisibleToMembers(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	devToken := e.tokenFor(t, "dev-1", models.RoleDeveloper)
	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages", devToken, SendMessageRequest{
		Content: "standup at ten",
		Type:    models.MessagePlain,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "lead-1", models.RoleProjectLead), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var messages []*models.Message
	decodeData(t, rec, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "dev-1", messages[0].SenderID)
	assert.Equal(t, models.MessagePlain, messages[0].Type)

	// Non-members see neither the thread nor the project.
	rec = e.do(t, http.MethodGet, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-2", models.RoleDeveloper), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessages_CompletionRequestByAssignedDeveloperOnly(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	request := SendMessageRequest{Content: "done, please review", Type: models.MessageCompletionRequest}

	// The lead reads the project but cannot file a request.
	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "lead-1", models.RoleProjectLead), request)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Neither can the admin; completing directly is their path.
	rec = e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "admin-1", models.RoleAdmin), request)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper), request)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var msg models.Message
	decodeData(t, rec, &msg)
	assert.True(t, msg.IsOutstandingRequest())
}

func TestMessages_SingleOutstandingRequestPerProject(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1", "dev-2")

	request := SendMessageRequest{Content: "done", Type: models.MessageCompletionRequest}

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper), request)
	require.Equal(t, http.StatusCreated, rec.Code)

	// A second request, even from a different developer, conflicts.
	rec = e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-2", models.RoleDeveloper), request)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Plain messages keep flowing meanwhile.
	rec = e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-2", models.RoleDeveloper), SendMessageRequest{
			Content: "waiting on review",
			Type:    models.MessagePlain,
		})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMessages_ApproveCompletesProject(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper),
		SendMessageRequest{Content: "done", Type: models.MessageCompletionRequest})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	decodeData(t, rec, &msg)

	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review",
		e.tokenFor(t, "lead-1", models.RoleProjectLead),
		ReviewRequest{Approved: boolPtr(true), Response: "ship it"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reviewed models.Message
	decodeData(t, rec, &reviewed)
	assert.Equal(t, models.MessageCompletionApproved, reviewed.Type)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "lead-1", *reviewed.ReviewedBy)
	assert.Equal(t, "ship it", reviewed.ReviewResponse)

	project, err := e.store.Projects.GetProject(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, project.Status)
}

func TestMessages_RejectLeavesProjectActive(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")
	devToken := e.tokenFor(t, "dev-1", models.RoleDeveloper)

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages", devToken,
		SendMessageRequest{Content: "done", Type: models.MessageCompletionRequest})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	decodeData(t, rec, &msg)

	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review",
		e.tokenFor(t, "lead-1", models.RoleProjectLead),
		ReviewRequest{Approved: boolPtr(false), Response: "tests are red"})
	require.Equal(t, http.StatusOK, rec.Code)

	project, err := e.store.Projects.GetProject(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, project.Status)

	// After the rejection a fresh request can be filed.
	rec = e.do(t, http.MethodPost, "/api/v1/projects/p1/messages", devToken,
		SendMessageRequest{Content: "fixed", Type: models.MessageCompletionRequest})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMessages_ReviewExactlyOnce(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper),
		SendMessageRequest{Content: "done", Type: models.MessageCompletionRequest})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	decodeData(t, rec, &msg)

	leadToken := e.tokenFor(t, "lead-1", models.RoleProjectLead)
	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review", leadToken,
		ReviewRequest{Approved: boolPtr(false), Response: "no"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The admin arriving second cannot flip the decision.
	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review",
		e.tokenFor(t, "admin-1", models.RoleAdmin),
		ReviewRequest{Approved: boolPtr(true)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	project, err := e.store.Projects.GetProject(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, project.Status)
}

func TestMessages_ReviewDeniedForDeveloperAndUnrelatedLead(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper),
		SendMessageRequest{Content: "done", Type: models.MessageCompletionRequest})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	decodeData(t, rec, &msg)

	review := ReviewRequest{Approved: boolPtr(true)}

	// Developers are cut off at the route gate.
	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review",
		e.tokenFor(t, "dev-1", models.RoleDeveloper), review)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An unrelated lead passes the route gate but fails the resource
	// gate without learning the project exists.
	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review",
		e.tokenFor(t, "lead-2", models.RoleProjectLead), review)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessages_PlainMessageCannotBeReviewed(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper),
		SendMessageRequest{Content: "hello", Type: models.MessagePlain})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg models.Message
	decodeData(t, rec, &msg)

	rec = e.do(t, http.MethodPost, "/api/v1/messages/"+msg.ID+"/review",
		e.tokenFor(t, "lead-1", models.RoleProjectLead),
		ReviewRequest{Approved: boolPtr(true)})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMessages_CompletionRequestNeedsActiveProject(t *testing.T) {
	e := newTestEnv(t)
	seedTeam(t, e)
	p := e.seedProject(t, "p1", "lead-1", "lead-1", "dev-1")
	require.NoError(t, e.store.Projects.SetStatus(context.Background(), p.ID, models.ProjectOnHold))

	rec := e.do(t, http.MethodPost, "/api/v1/projects/p1/messages",
		e.tokenFor(t, "dev-1", models.RoleDeveloper),
		SendMessageRequest{Content: "done", Type: models.MessageCompletionRequest})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
