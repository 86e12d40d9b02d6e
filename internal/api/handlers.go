// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"net/http"

	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/store"
)

// Handlers bundles the controllers' dependencies. Every handler is a
// thin wrapper: decode and validate input, consult the authorization
// engine, perform the mutation, record audit where required.
type Handlers struct {
	cfg     *config.Config
	store   *store.Store
	tokens  *auth.TokenManager
	tracker *auth.LockoutTracker
	audit   *audit.Recorder
}

// NewHandlers wires the controllers.
func NewHandlers(cfg *config.Config, st *store.Store, tokens *auth.TokenManager, tracker *auth.LockoutTracker, recorder *audit.Recorder) *Handlers {
	return &Handlers{
		cfg:     cfg,
		store:   st,
		tokens:  tokens,
		tracker: tracker,
		audit:   recorder,
	}
}

// subject pulls the authenticated subject out of the request context.
// The authentication middleware guarantees it on protected routes.
func subject(r *http.Request) (auth.Subject, bool) {
	return auth.SubjectFromContext(r.Context())
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}
