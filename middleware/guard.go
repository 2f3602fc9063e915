package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

// Authorizer resolves an access token to an identity. *authcore.Engine
// implements it.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (*authcore.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by [Guard].
func IdentityFromContext(ctx context.Context) (*authcore.Identity, bool) {
	ident, ok := ctx.Value(identityContextKey{}).(*authcore.Identity)
	return ident, ok && ident != nil
}

// WithIdentity returns a copy of ctx carrying ident.
func WithIdentity(ctx context.Context, ident *authcore.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, ident)
}

// Guard rejects requests without a valid bearer access token.
//
// Token and lookup failures answer 401 with a WWW-Authenticate challenge; store
// failures answer 500.
func Guard(auth Authorizer) func(http.Handler) http.Handler {
	return guard(auth, false)
}

// RequireConfirmed is [Guard] plus a 403 for unconfirmed identities.
func RequireConfirmed(auth Authorizer) func(http.Handler) http.Handler {
	return guard(auth, true)
}

func guard(auth Authorizer, requireConfirmed bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			ident, err := auth.Authorize(r.Context(), token)
			if err != nil {
				if errors.Is(err, authcore.ErrAuthentication) || errors.Is(err, authcore.ErrUserNotFound) {
					unauthorized(w)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			if requireConfirmed && !ident.Confirmed {
				http.Error(w, "email not confirmed", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "could not validate credentials", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}
