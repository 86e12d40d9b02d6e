// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/metrics"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/store"
	"github.com/crewdeck/crewdeck/internal/validation"
)

// invalidCredentialsMsg is returned for every login failure that is
// not a lock, so responses cannot be used to enumerate accounts.
const invalidCredentialsMsg = "Invalid email or password"

// LoginResponse is the successful login payload.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	now := time.Now().UTC()
	user, err := h.store.Users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown account: same generic response as a bad password.
			metrics.RecordLogin("failure")
			h.audit.RecordAnonymous(ctx, models.NormalizeEmail(req.Email),
				audit.ActionLoginFailed, audit.ResourceUser, "", "unknown account")
			rw.Unauthorized(invalidCredentialsMsg)
			return
		}
		rw.InternalError(err)
		return
	}

	// Lock check precedes credential verification: a locked account
	// rejects even the correct password.
	if err := h.tracker.Check(ctx, user.ID, now); err != nil {
		if errors.Is(err, auth.ErrAccountLocked) {
			metrics.RecordLogin("locked")
			h.audit.RecordAnonymous(ctx, user.Email,
				audit.ActionLoginLocked, audit.ResourceUser, user.ID, "")
			rw.AccountLocked()
			return
		}
		rw.InternalError(err)
		return
	}

	if !user.Active || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		locked := false
		if user.Active {
			var ferr error
			locked, _, ferr = h.tracker.RecordFailure(ctx, user.ID, now)
			if ferr != nil {
				rw.InternalError(ferr)
				return
			}
		}

		h.audit.RecordAnonymous(ctx, user.Email,
			audit.ActionLoginFailed, audit.ResourceUser, user.ID, "")

		if locked {
			metrics.RecordLogin("locked")
			rw.AccountLocked()
			return
		}
		metrics.RecordLogin("failure")
		rw.Unauthorized(invalidCredentialsMsg)
		return
	}

	if err := h.tracker.RecordSuccess(ctx, user.ID); err != nil {
		rw.InternalError(err)
		return
	}

	accessToken, err := h.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		rw.InternalError(err)
		return
	}
	refreshToken, err := h.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		rw.InternalError(err)
		return
	}

	metrics.RecordLogin("success")
	metrics.RecordTokenIssued("access")
	metrics.RecordTokenIssued("refresh")
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("User logged in")

	rw.Success(LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitized(),
	})
}

// RefreshToken handles POST /api/v1/auth/refresh-token. A valid
// refresh token yields a fresh access token only; the refresh token is
// neither rotated nor revoked.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}

	claims, err := h.tokens.Verify(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		rw.FromError(err)
		return
	}

	// The role on the new access token comes from the live record, not
	// the refresh token, so a role change takes effect on renewal.
	user, err := h.store.Users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.Unauthorized("Invalid token")
			return
		}
		rw.InternalError(err)
		return
	}
	if !user.Active {
		rw.Unauthorized("Invalid token")
		return
	}
	if iat := claims.IssuedAt; iat != nil && user.PasswordChangedAt.After(iat.Time) {
		rw.Unauthorized("Invalid token")
		return
	}

	accessToken, err := h.tokens.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		rw.InternalError(err)
		return
	}

	metrics.RecordTokenIssued("access")
	rw.Success(map[string]string{"access_token": accessToken})
}

// ChangePassword handles PUT /api/v1/auth/change-password. The bump of
// password_changed_at invalidates every previously issued token,
// including the one authenticating this request.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	sub, ok := subject(r)
	if !ok {
		rw.Unauthorized("Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Details())
		return
	}
	if len(req.NewPassword) < h.cfg.Security.MinPasswordLength {
		rw.BadRequest("New password is too short")
		return
	}

	user, err := h.store.Users.GetUserByID(ctx, sub.ID)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !auth.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		rw.Unauthorized("Current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword, h.cfg.Security.BcryptCost)
	if err != nil {
		rw.InternalError(err)
		return
	}
	if err := h.store.Users.UpdatePassword(ctx, sub.ID, hash, time.Now().UTC()); err != nil {
		rw.FromError(err)
		return
	}

	logging.Ctx(ctx).Info().Str("user_id", sub.ID).Msg("Password changed")
	rw.Success(map[string]string{"message": "Password changed. Please log in again."})
}
