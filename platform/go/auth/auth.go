package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const ctxPrincipal ctxKey = "MANDANT_PRINCIPAL"

// Principal carries the authenticated caller as asserted by the intranet SSO layer.
// Only the email is trusted at this point; the employee directory lookup happens later.
type Principal struct {
	Email string
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v := ctx.Value(ctxPrincipal)
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// WithPrincipal returns a derived context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// EmailFunc resolves the caller's email from the incoming request.
// Implementations must return ("", nil) when no credentials are present at all;
// a non-nil error means credentials were presented but are invalid.
type EmailFunc func(r *http.Request) (string, error)

// Middleware extracts the principal email and stores it on the context.
// Requests without credentials pass through unauthenticated; the tenant access
// middleware rejects them later with a proper envelope. Invalid credentials are
// rejected immediately.
func Middleware(resolve EmailFunc) func(http.Handler) http.Handler {
	if resolve == nil {
		panic("auth.Middleware: resolve func must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			email, err := resolve(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			email = strings.TrimSpace(email)
			if email == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{Email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractBearerToken pulls the bearer token from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(authHeader[len(prefix):]), true
}

// HeaderEmail trusts the reverse proxy to assert the caller identity in a header.
// Used behind the intranet gateway where the SSO layer terminates authentication.
func HeaderEmail(header string) EmailFunc {
	if header == "" {
		header = "X-Authenticated-User"
	}
	return func(r *http.Request) (string, error) {
		return r.Header.Get(header), nil
	}
}
