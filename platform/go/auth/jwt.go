package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingEmailClaim = errors.New("token carries no email claim")

// JWTEmail verifies an HS256 bearer token and extracts the email claim.
// Tokens are minted by the SSO gateway with a shared secret.
func JWTEmail(secret []byte) EmailFunc {
	if len(secret) == 0 {
		panic("auth.JWTEmail: secret must not be empty")
	}

	return func(r *http.Request) (string, error) {
		raw, found := ExtractBearerToken(r)
		if !found {
			return "", nil
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return "", fmt.Errorf("verify bearer token: %w", err)
		}

		email, ok := claims["email"].(string)
		if !ok || email == "" {
			return "", errMissingEmailClaim
		}

		return email, nil
	}
}
