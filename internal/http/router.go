package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helioauth/accounts/internal/config"
	"github.com/helioauth/accounts/internal/http/features/account"
	"github.com/helioauth/accounts/internal/http/features/google"
	"github.com/helioauth/accounts/internal/http/features/me"
	"github.com/helioauth/accounts/internal/http/middleware"
	"github.com/helioauth/accounts/internal/httputil"
	"github.com/helioauth/accounts/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	AccountService      *auth.AccountService
	VerificationService *auth.VerificationService
	GoogleService       *auth.GoogleService
	TokenService        *auth.TokenService
	Store               auth.AccountStore
	WelcomeSender       account.WelcomeSender
	MaxRequestBodySize  int64
	RateLimit           config.RateLimitConfig
	SecurityHeaders     config.SecurityHeadersConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimit, cfg.Logger)
	authn := middleware.Auth(cfg.TokenService, cfg.Store)

	accountHandler := account.NewHandler(
		cfg.Logger,
		cfg.AccountService,
		cfg.VerificationService,
		cfg.TokenService,
		cfg.WelcomeSender,
	)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["auth"])
		r.Post("/v1/auth/register", accountHandler.Register)
		r.Post("/v1/auth/login", accountHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["verify"])
		r.Post("/v1/auth/verify", accountHandler.Verify)
		r.Post("/v1/auth/resend", accountHandler.Resend)
	})

	if cfg.GoogleService != nil {
		googleHandler := google.NewHandler(cfg.Logger, cfg.GoogleService, cfg.TokenService)
		r.With(rateLimiters["auth"]).Post("/v1/auth/google", googleHandler.Authenticate)
	}

	meHandler := me.NewHandler(cfg.Logger, cfg.AccountService, cfg.VerificationService)
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Use(rateLimiters["profile"])
		r.Get("/v1/me", meHandler.Get)
		r.Patch("/v1/me", meHandler.Update)
		r.Post("/v1/me/password", meHandler.ChangePassword)
	})

	return r
}
