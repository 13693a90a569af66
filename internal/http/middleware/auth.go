package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/helioauth/accounts/internal/httputil"
	"github.com/helioauth/accounts/pkg/auth"
	"github.com/helioauth/accounts/pkg/domain"
)

type contextKey string

// AccountKey is the context key for the authenticated account.
const AccountKey contextKey = "account"

// Auth creates middleware that gates protected routes on a bearer token. It
// resolves the token to an account ID, loads the account, and rejects the
// request if either step fails — a valid token for a deleted account is still
// unauthorized.
func Auth(tokens *auth.TokenService, store auth.AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			accountID, err := tokens.Resolve(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			account, err := store.GetByID(r.Context(), accountID)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetAccount extracts the authenticated account from the request context.
func GetAccount(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*domain.Account)
	return account, ok
}
