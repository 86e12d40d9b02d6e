// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"errors"

	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/store"
)

// FromError maps domain errors onto envelope responses. Anything
// unrecognized is treated as internal and hidden behind a generic 500.
func (rw *ResponseWriter) FromError(err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		rw.NotFound("Resource not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		rw.Conflict("Email address already in use")
	case errors.Is(err, store.ErrOutstandingRequest):
		rw.Conflict("Project already has an outstanding completion request")
	case errors.Is(err, store.ErrAlreadyReviewed):
		rw.Conflict("Completion request has already been reviewed")
	case errors.Is(err, auth.ErrAccountLocked):
		rw.AccountLocked()
	case errors.Is(err, auth.ErrTokenExpired):
		rw.Unauthorized("Token expired")
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenMalformed):
		rw.Unauthorized("Invalid token")
	case errors.Is(err, authz.ErrSelfTargeting):
		rw.Forbidden("This operation may not target your own account")
	default:
		rw.InternalError(err)
	}
}
