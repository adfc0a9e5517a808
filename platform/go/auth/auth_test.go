package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		token  string
		found  bool
	}{
		{header: "", token: "", found: false},
		{header: "Basic abc", token: "", found: false},
		{header: "Bearer", token: "", found: false},
		{header: "Bearer abc.def.ghi", token: "abc.def.ghi", found: true},
		{header: "bearer abc.def.ghi", token: "abc.def.ghi", found: true},
		{header: "Bearer   spaced  ", token: "spaced", found: true},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}

		token, found := ExtractBearerToken(r)
		require.Equal(t, tc.found, found, "header %q", tc.header)
		require.Equal(t, tc.token, token, "header %q", tc.header)
	}
}

func TestHeaderEmail(t *testing.T) {
	t.Parallel()

	resolve := HeaderEmail("X-Authenticated-User")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Authenticated-User", "max@firma.de")

	email, err := resolve(r)
	require.NoError(t, err)
	require.Equal(t, "max@firma.de", email)

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	email, err = resolve(empty)
	require.NoError(t, err)
	require.Empty(t, email)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	nextPrincipal := func(t *testing.T) (http.Handler, *Principal, *bool) {
		t.Helper()
		var p Principal
		var authed bool
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, authed = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}), &p, &authed
	}

	t.Run("valid credentials attach the principal", func(t *testing.T) {
		t.Parallel()

		next, principal, authed := nextPrincipal(t)
		handler := Middleware(func(*http.Request) (string, error) {
			return "  max@firma.de  ", nil
		})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, *authed)
		require.Equal(t, "max@firma.de", principal.Email)
	})

	t.Run("no credentials pass through unauthenticated", func(t *testing.T) {
		t.Parallel()

		next, _, authed := nextPrincipal(t)
		handler := Middleware(func(*http.Request) (string, error) {
			return "", nil
		})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, *authed)
	})

	t.Run("invalid credentials are rejected immediately", func(t *testing.T) {
		t.Parallel()

		next, _, authed := nextPrincipal(t)
		handler := Middleware(func(*http.Request) (string, error) {
			return "", errors.New("bad token")
		})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		require.False(t, *authed)
	})

	t.Run("preflight requests skip authentication", func(t *testing.T) {
		t.Parallel()

		next, _, _ := nextPrincipal(t)
		handler := Middleware(func(*http.Request) (string, error) {
			return "", errors.New("must not be called")
		})(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
	})
}
