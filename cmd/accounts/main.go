package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/helioauth/accounts/internal/config"
	httpserver "github.com/helioauth/accounts/internal/http"
	"github.com/helioauth/accounts/internal/http/features/account"
	"github.com/helioauth/accounts/internal/notification"
	"github.com/helioauth/accounts/pkg/auth"
	"github.com/helioauth/accounts/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(context.Background(), db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	store := repository.NewAccountsRepository(db)

	hasher := auth.NewHasher(cfg.BcryptCost)
	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})
	accountService := auth.NewAccountService(store, hasher)

	var otpSender auth.OTPSender
	var welcomeSender account.WelcomeSender
	if cfg.HasSMTP() {
		emailService := notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		otpSender = emailService
		welcomeSender = emailService
		logger.Info("email service enabled")
	} else {
		logSender := &notification.LogSender{Logger: logger}
		otpSender = logSender
		welcomeSender = logSender
		logger.Warn("SMTP not configured, verification codes will be logged")
	}

	verificationService := auth.NewVerificationService(auth.VerificationConfig{
		OTPTTL:      cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
	}, store, otpSender)

	var googleService *auth.GoogleService
	if cfg.HasGoogleOAuth() {
		googleService = auth.NewGoogleService(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
		}, store)
		logger.Info("Google OAuth enabled")
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		AccountService:      accountService,
		VerificationService: verificationService,
		GoogleService:       googleService,
		TokenService:        tokenService,
		Store:               store,
		WelcomeSender:       welcomeSender,
		MaxRequestBodySize:  cfg.MaxRequestBodySize,
		RateLimit:           cfg.RateLimit,
		SecurityHeaders:     cfg.SecurityHeaders,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
