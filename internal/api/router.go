// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/metrics"
	"github.com/crewdeck/crewdeck/internal/models"
)

// NewRouter assembles the full route table. Every protected route runs
// authentication first, then the role gate; resource-level rules run
// inside the handlers once the resource is loaded.
func NewRouter(cfg *config.Config, h *Handlers, authMW *auth.Middleware, az *authz.Middleware) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)

	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if !cfg.Security.RateLimitDisabled {
					r.Use(loginRateLimiter(cfg))
				}
				r.Post("/login", h.Login)
			})
			r.Post("/refresh-token", h.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireAuth)
				r.With(az.Require("/api/v1/auth/change-password", "write")).
					Put("/change-password", h.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Route("/users", func(r chi.Router) {
				r.With(az.Require("/api/v1/users", "read")).Get("/", h.ListUsers)
				r.With(az.Require("/api/v1/users", "write")).Post("/", h.CreateUser)
				r.With(az.Require("/api/v1/users/:id", "read")).Get("/{id}", h.GetUser)
				r.With(az.Require("/api/v1/users/:id", "write")).Put("/{id}", h.UpdateUser)
				r.With(az.Require("/api/v1/users/:id", "delete")).Delete("/{id}", h.DeleteUser)
				r.With(az.Require("/api/v1/users/:id", "write")).
					Post("/{id}/deactivate", h.DeactivateUser)
				r.With(az.Require("/api/v1/users/:id", "write")).
					Post("/{id}/reset-password", h.ResetUserPassword)
			})

			r.Route("/projects", func(r chi.Router) {
				r.With(az.Require("/api/v1/projects", "read")).Get("/", h.ListProjects)
				r.With(az.Require("/api/v1/projects", "write")).Post("/", h.CreateProject)
				r.With(az.Require("/api/v1/projects/:id", "read")).Get("/{id}", h.GetProject)
				r.With(az.Require("/api/v1/projects/:id", "write")).Put("/{id}", h.UpdateProject)
				r.With(az.Require("/api/v1/projects/:id", "delete")).Delete("/{id}", h.DeleteProject)
				r.With(az.Require("/api/v1/projects/:id/assignments", "write")).
					Put("/{id}/assignments", h.SetProjectAssignments)

				r.With(az.Require("/api/v1/projects/:id/documents", "read")).
					Get("/{id}/documents", h.ListDocuments)
				r.With(az.Require("/api/v1/projects/:id/documents", "write")).
					Post("/{id}/documents", h.UploadDocument)

				r.With(az.Require("/api/v1/projects/:id/messages", "read")).
					Get("/{id}/messages", h.ListMessages)
				r.With(az.Require("/api/v1/projects/:id/messages", "write")).
					Post("/{id}/messages", h.SendMessage)
			})

			r.Route("/documents", func(r chi.Router) {
				r.With(az.Require("/api/v1/documents/:id", "read")).Get("/{id}", h.GetDocument)
				r.With(az.Require("/api/v1/documents/:id", "delete")).Delete("/{id}", h.DeleteDocument)
				r.With(az.Require("/api/v1/documents/:id/download", "read")).
					Get("/{id}/download", h.DownloadDocument)
				r.With(az.Require("/api/v1/documents/:id/access", "write")).
					Put("/{id}/access", h.SetDocumentAccess)
			})

			r.With(az.Require("/api/v1/messages/:id/review", "write")).
				Post("/messages/{id}/review", h.ReviewCompletionRequest)
		})
	})

	return r
}

// loginRateLimiter throttles login attempts per (client IP, email)
// pair so one address hammering one account cannot also exhaust the
// budget of other users behind the same NAT.
func loginRateLimiter(cfg *config.Config) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Security.LoginRateLimit,
		cfg.Security.LoginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP, loginRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordLogin("rate_limited")
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests,
				ErrCodeTooManyRequests, "Too many login attempts, try again later")
		}),
	)
}

// loginRateKey extracts the normalized email from the login body. The
// body is restored so the handler can decode it again.
func loginRateKey(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil //nolint:nilerr
	}
	return models.NormalizeEmail(req.Email), nil
}
