package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/helioauth/accounts/internal/http/features/common"
	"github.com/helioauth/accounts/internal/httputil"
	"github.com/helioauth/accounts/pkg/auth"
	"github.com/helioauth/accounts/pkg/domain"
)

// WelcomeSender delivers the post-verification welcome email.
type WelcomeSender interface {
	SendWelcomeEmail(to, name string) error
}

// Handler handles registration, verification, and password login.
type Handler struct {
	logger        *slog.Logger
	accounts      *auth.AccountService
	verification  *auth.VerificationService
	tokens        *auth.TokenService
	welcomeSender WelcomeSender
}

// NewHandler creates a new account handler. welcomeSender may be nil when
// outbound email is not configured.
func NewHandler(
	logger *slog.Logger,
	accounts *auth.AccountService,
	verification *auth.VerificationService,
	tokens *auth.TokenService,
	welcomeSender WelcomeSender,
) *Handler {
	return &Handler{
		logger:        logger,
		accounts:      accounts,
		verification:  verification,
		tokens:        tokens,
		welcomeSender: welcomeSender,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest represents an email verification request.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendRequest represents a resend request.
type ResendRequest struct {
	Email string `json:"email"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration.
// POST /v1/auth/register
//
// The verification email is best-effort here: the OTP is persisted either
// way, and the resend endpoint is the recovery path when delivery fails.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		httputil.Error(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	acct, err := h.accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			httputil.Error(w, http.StatusConflict, "email already registered")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domain.ErrInvalidName):
			httputil.Error(w, http.StatusBadRequest, "name is required")
		case errors.Is(err, domain.ErrWeakPassword):
			httputil.Error(w, http.StatusBadRequest, "password must be 8-72 characters")
		default:
			h.logger.Error("registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	if err := h.verification.IssueOTP(r.Context(), acct); err != nil {
		// The account exists and the resend flow can recover, so this is not
		// a registration failure.
		h.logger.Error("failed to issue verification code", "error", err, "account_id", acct.ID)
	}

	httputil.JSON(w, http.StatusCreated, map[string]any{
		"success":              true,
		"requiresVerification": true,
		"email":                acct.Email,
		"userId":               acct.ID.String(),
	})
}

// Verify handles email verification.
// POST /v1/auth/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "email and code are required")
		return
	}

	acct, err := h.accounts.GetByEmail(r.Context(), req.Email)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "account not found")
		return
	}

	remaining, err := h.verification.CheckOTP(r.Context(), acct, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPendingVerification):
			httputil.Error(w, http.StatusBadRequest, "no pending verification for this account")
		case errors.Is(err, domain.ErrOTPExpired):
			httputil.Error(w, http.StatusBadRequest, "verification code expired. please request a new one")
		case errors.Is(err, domain.ErrOTPAttemptsExhausted):
			httputil.Error(w, http.StatusTooManyRequests, "too many failed attempts. please request a new code")
		case errors.Is(err, domain.ErrInvalidOTP):
			httputil.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid verification code. %d attempts remaining", remaining))
		default:
			h.logger.Error("verification failed", "error", err, "account_id", acct.ID)
			httputil.Error(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	token, err := h.tokens.Issue(acct.ID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err, "account_id", acct.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	// Welcome email is fire-and-forget: the verification already succeeded.
	if h.welcomeSender != nil {
		go func(email, name string) {
			if err := h.welcomeSender.SendWelcomeEmail(email, name); err != nil {
				h.logger.Error("failed to send welcome email", "error", err, "email", email)
			}
		}(acct.Email, acct.Name)
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    common.NewUserResponse(acct),
	})
}

// Resend issues a fresh verification code.
// POST /v1/auth/resend
//
// Unlike registration, delivery is the whole point of this endpoint, so a
// send failure is reported as an upstream error.
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.verification.Resend(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			httputil.Error(w, http.StatusNotFound, "account not found")
		case errors.Is(err, domain.ErrAlreadyVerified):
			httputil.Error(w, http.StatusBadRequest, "email already verified")
		case errors.Is(err, domain.ErrEmailSend):
			httputil.Error(w, http.StatusBadGateway, "failed to send verification email")
		default:
			h.logger.Error("resend failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to resend verification code")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// Login handles password login.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, domain.ErrEmailNotVerified):
			httputil.Error(w, http.StatusForbidden, "email verification required")
		default:
			h.logger.Error("login failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "login failed")
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
