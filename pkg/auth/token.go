package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/helioauth/accounts/pkg/domain"
)

// DefaultTokenTTL is how long issued bearer tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// TokenConfig holds token issuer configuration. The secret is process-wide;
// rotating it invalidates all outstanding tokens, which is acceptable because
// sessions are stateless and short-lived.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// TokenService issues and resolves signed bearer tokens. There is no
// revocation list; invalidation is time-based only.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service. A zero TTL selects
// DefaultTokenTTL.
func NewTokenService(config TokenConfig) *TokenService {
	if config.TTL == 0 {
		config.TTL = DefaultTokenTTL
	}
	return &TokenService{config: config}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.config.TTL
}

// Issue mints a signed token encoding the account ID and issuance time.
func (s *TokenService) Issue(accountID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
		Issuer:    s.config.Issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// Resolve validates a token and returns the account ID it asserts. It fails
// with domain.ErrInvalidToken when the signature is wrong, the token is
// malformed, or the validity window has elapsed.
func (s *TokenService) Resolve(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	})
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return uuid.Nil, domain.ErrInvalidToken
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return accountID, nil
}
