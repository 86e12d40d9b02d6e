// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/crewdeck/crewdeck/internal/logging"
)

type contextKey string

// subjectContextKey carries the resolved Subject through the request
// context.
const subjectContextKey contextKey = "auth_subject"

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	subject, ok := ctx.Value(subjectContextKey).(Subject)
	return subject, ok
}

// ContextWithSubject attaches a subject to the context. Exported for
// handler tests that bypass the middleware.
func ContextWithSubject(ctx context.Context, subject Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// Middleware authenticates requests with Bearer access tokens and
// attaches the resolved Subject to the request context. Requests with
// a missing, malformed, expired, or stale token are rejected with 401.
type Middleware struct {
	tokens   *TokenManager
	resolver *Resolver
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(tokens *TokenManager, resolver *Resolver) *Middleware {
	return &Middleware{tokens: tokens, resolver: resolver}
}

// RequireAuth wraps a handler, requiring a valid access token.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokenString, ok := extractBearerToken(r)
		if !ok {
			writeUnauthorized(ctx, w, "MISSING_TOKEN", "Authorization required")
			return
		}

		claims, err := m.tokens.Verify(tokenString, TokenAccess)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			logging.Ctx(ctx).Debug().Err(err).Msg("Access token rejected")
			writeUnauthorized(ctx, w, code, "Invalid or expired token")
			return
		}

		subject, err := m.resolver.Resolve(ctx, claims)
		if err != nil {
			logging.Ctx(ctx).Debug().
				Err(err).
				Str("subject_id", claims.Subject).
				Msg("Subject resolution failed")
			writeUnauthorized(ctx, w, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(ctx, subject)))
	})
}

// extractBearerToken pulls the token out of the Authorization header.
// The scheme comparison is case-insensitive per RFC 7235.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

// writeUnauthorized emits the standard 401 envelope. It lives here
// rather than the api package to avoid an import cycle; the shape
// matches api.Response.
func writeUnauthorized(ctx context.Context, w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="crewdeck"`)
	w.WriteHeader(http.StatusUnauthorized)

	body := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		body["request_id"] = requestID
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to write unauthorized response")
	}
}
