package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authgate "github.com/jswierad/authgate"
)

type authResultContextKey struct{}

// AuthResultFromContext retrieves the identity a guard injected into
// the request context.
func AuthResultFromContext(ctx context.Context) (*authgate.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authgate.AuthResult)
	return res, ok
}

// SessionCookieName is the cookie carrying the opaque session ID.
const SessionCookieName = "authgate_session"

// RequireSession returns middleware that validates the session cookie
// against the engine. tenantResolver maps a request to the tenant the
// route serves; the guard rejects the request when the validated
// credential belongs to a different tenant.
func RequireSession(engine *authgate.Engine, tenantResolver func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			tenantID := tenantResolver(r)
			res, err := engine.ValidateSession(r.Context(), tenantID, cookie.Value)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, &res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBearer returns middleware that verifies the Authorization
// bearer token. Verification is stateless; no storage round-trip.
func RequireBearer(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.VerifyAccessToken(r.Context(), token)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, &res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission returns middleware that authorizes a single
// permission for the identity a previous guard injected. It must run
// after RequireSession or RequireBearer.
func RequirePermission(engine *authgate.Engine, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if err := engine.Check(r.Context(), *res, permission); err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError maps engine errors onto HTTP status codes without
// leaking which check failed.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authgate.ErrPermissionDenied), errors.Is(err, authgate.ErrTenantMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, authgate.ErrLoginRateLimited),
		errors.Is(err, authgate.ErrRefreshRateLimited),
		errors.Is(err, authgate.ErrAccountLocked):
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	case errors.Is(err, authgate.ErrStoreUnavailable), errors.Is(err, authgate.ErrHashingTimeout):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
