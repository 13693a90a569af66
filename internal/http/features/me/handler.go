package me

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/helioauth/accounts/internal/http/features/common"
	"github.com/helioauth/accounts/internal/http/middleware"
	"github.com/helioauth/accounts/internal/httputil"
	"github.com/helioauth/accounts/pkg/auth"
	"github.com/helioauth/accounts/pkg/domain"
)

// Handler handles the authenticated profile endpoints.
type Handler struct {
	logger       *slog.Logger
	accounts     *auth.AccountService
	verification *auth.VerificationService
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, accounts *auth.AccountService, verification *auth.VerificationService) *Handler {
	return &Handler{
		logger:       logger,
		accounts:     accounts,
		verification: verification,
	}
}

// UpdateRequest represents a profile update request.
type UpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Get returns the current user's profile.
// GET /v1/me
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    common.NewUserResponse(acct),
	})
}

// Update updates the current user's profile.
// PATCH /v1/me
//
// A changed email address must be re-verified: the account flips back to
// unverified and a fresh code goes to the new address.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && req.Email == nil {
		httputil.Error(w, http.StatusBadRequest, "nothing to update")
		return
	}

	updated, emailChanged, err := h.accounts.UpdateProfile(r.Context(), acct, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			httputil.Error(w, http.StatusConflict, "email already in use")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domain.ErrInvalidName):
			httputil.Error(w, http.StatusBadRequest, "name is required")
		default:
			h.logger.Error("profile update failed", "error", err, "account_id", acct.ID)
			httputil.Error(w, http.StatusInternalServerError, "failed to update profile")
		}
		return
	}

	if emailChanged {
		if err := h.verification.IssueOTP(r.Context(), updated); err != nil {
			h.logger.Error("failed to issue verification code", "error", err, "account_id", updated.ID)
		}
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    common.NewUserResponse(updated),
	})
}

// ChangePassword changes the current user's password.
// POST /v1/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.GetAccount(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "current and new password are required")
		return
	}

	err := h.accounts.ChangePassword(r.Context(), acct, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPassword):
			httputil.Error(w, http.StatusBadRequest, "account has no password credential")
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, "password must be 8-72 characters")
		default:
			h.logger.Error("password change failed", "error", err, "account_id", acct.ID)
			httputil.Error(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"success": true})
}
