// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package authz

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/metrics"
)

// Middleware applies the route-level role gate. It runs after the
// authentication middleware and before the resource is loaded, so a
// role denial is reported without touching the store.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Require gates a route on the (object, action) pair. The object is
// the route pattern as it appears in the embedded policy.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subject, ok := auth.SubjectFromContext(ctx)
			if !ok {
				writeForbidden(w, "Authentication context missing")
				return
			}

			allowed, err := m.enforcer.Enforce(subject.Role, object, action)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).
					Str("object", object).
					Str("action", action).
					Msg("Route gate evaluation failed")
				writeInternalError(w)
				return
			}

			metrics.RecordAuthzDecision("route", allowed)

			if !allowed {
				logging.Ctx(ctx).Debug().
					Str("subject_id", subject.ID).
					Str("role", subject.Role).
					Str("object", object).
					Str("action", action).
					Msg("Route gate denied request")
				writeForbidden(w, "You do not have permission to perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeForbidden emits the standard 403 envelope. Duplicated from the
// api package to avoid an import cycle.
func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	//nolint:errcheck
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    "FORBIDDEN",
			"message": message,
		},
	})
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	//nolint:errcheck
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    "INTERNAL_ERROR",
			"message": "An internal error occurred",
		},
	})
}
