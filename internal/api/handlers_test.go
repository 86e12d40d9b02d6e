// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/store"
)

// testEnv wires the full router over an in-memory database so handler
// tests exercise authentication, route gates, and resource gates the
// same way production requests do.
type testEnv struct {
	cfg    *config.Config
	store  *store.Store
	tokens *auth.TokenManager
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8080, Timeout: 30 * time.Second},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Storage:  config.StorageConfig{Dir: t.TempDir()},
		Security: config.SecurityConfig{
			AccessTokenSecret:  strings.Repeat("a", 32),
			RefreshTokenSecret: strings.Repeat("b", 32),
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			ClockSkew:          5 * time.Second,
			Issuer:             "crewdeck",
			Audience:           "crewdeck-api",
			BcryptCost:         4,
			MinPasswordLength:  8,
			LockoutThreshold:   5,
			LockoutDuration:    2 * time.Hour,
			LoginRateLimit:     5,
			LoginRateWindow:    15 * time.Minute,
			RateLimitDisabled:  true,
		},
	}

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens, err := auth.NewTokenManager(&cfg.Security)
	require.NoError(t, err)
	tracker := auth.NewLockoutTracker(st.Users, auth.LockoutConfig{
		Threshold: cfg.Security.LockoutThreshold,
		Duration:  cfg.Security.LockoutDuration,
	})

	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{CacheEnabled: false})
	require.NoError(t, err)
	t.Cleanup(enforcer.Close)

	handlers := NewHandlers(cfg, st, tokens, tracker, audit.NewRecorder(st.Audit))
	authMW := auth.NewMiddleware(tokens, auth.NewResolver(st.Users))
	router := NewRouter(cfg, handlers, authMW, authz.NewMiddleware(enforcer))

	return &testEnv{cfg: cfg, store: st, tokens: tokens, router: router}
}

// testPassword is the password every seeded user gets.
const testPassword = "correct horse battery staple"

func (e *testEnv) seedUser(t *testing.T, id, email, role string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, e.cfg.Security.BcryptCost)
	require.NoError(t, err)

	u := &models.User{
		ID:           id,
		Email:        email,
		Name:         "User " + id,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		// Backdated so tokens minted in the same second as the seed are
		// not rejected as issued before the credential (iat has whole-
		// second precision).
		PasswordChangedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, e.store.Users.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) seedProject(t *testing.T, id, createdBy, lead string, developers ...string) *models.Project {
	t.Helper()
	p := &models.Project{
		ID:                 id,
		Name:               "Project " + id,
		Description:        "seeded",
		Deadline:           time.Now().UTC().Add(30 * 24 * time.Hour),
		Status:             models.ProjectActive,
		Priority:           models.PriorityMedium,
		CreatedBy:          createdBy,
		ProjectLead:        lead,
		AssignedDevelopers: developers,
	}
	require.NoError(t, e.store.Projects.CreateProject(context.Background(), p))
	return p
}

func (e *testEnv) tokenFor(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := e.tokens.IssueAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

// do runs one request through the router. A non-nil body is sent as
// JSON; a non-empty token goes in the Authorization header.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors APIResponse for decoding in tests.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, "expected success envelope, got %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error, "expected error envelope, got %s", rec.Body.String())
	return env.Error.Code
}
