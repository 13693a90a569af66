package google

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/helioauth/accounts/internal/http/features/common"
	"github.com/helioauth/accounts/internal/httputil"
	"github.com/helioauth/accounts/pkg/auth"
	"github.com/helioauth/accounts/pkg/domain"
)

// Handler handles Google OAuth login.
type Handler struct {
	logger *slog.Logger
	google *auth.GoogleService
	tokens *auth.TokenService
}

// NewHandler creates a new Google handler.
func NewHandler(logger *slog.Logger, google *auth.GoogleService, tokens *auth.TokenService) *Handler {
	return &Handler{
		logger: logger,
		google: google,
		tokens: tokens,
	}
}

// AuthRequest carries the OAuth authorization code obtained by the client.
type AuthRequest struct {
	Code string `json:"code"`
}

// Authenticate handles the Google login flow: code exchange, identity
// reconciliation, and token issuance.
// POST /v1/auth/google
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "authorization code is required")
		return
	}

	claims, err := h.google.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		h.logger.Error("google code exchange failed", "error", err)
		httputil.Error(w, http.StatusBadGateway, "failed to verify google identity")
		return
	}

	acct, err := h.google.Authenticate(r.Context(), claims)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailNotVerified):
			httputil.Error(w, http.StatusBadRequest, "google account email is not verified")
		case errors.Is(err, domain.ErrIdentityMismatch), errors.Is(err, domain.ErrGoogleIDTaken):
			httputil.Error(w, http.StatusConflict, "google identity is linked to another account")
		default:
			h.logger.Error("google authentication failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	token, err := h.tokens.Issue(acct.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "account_id", acct.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    common.NewUserResponse(acct),
	})
}
