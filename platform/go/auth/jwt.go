package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier returns a VerifyFunc that validates HS256 tokens issued by the
// login collaborator with the shared secret.
func HMACVerifier(secret []byte) VerifyFunc {
	if len(secret) == 0 {
		panic("auth.HMACVerifier: secret must not be empty")
	}

	return func(ctx context.Context, token string) (map[string]interface{}, error) {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, err
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok || !parsed.Valid {
			return nil, errors.New("invalid token claims")
		}
		return claims, nil
	}
}

// DefaultCredentialExtractor maps standard claims into UserCredentials.
// Subject is mandatory; everything else degrades to zero values.
func DefaultCredentialExtractor(claims map[string]interface{}) (*UserCredentials, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("token is missing sub claim")
	}

	creds := &UserCredentials{ID: sub}

	if email, ok := claims["email"].(string); ok {
		creds.Email = email
	}
	if name, ok := claims["name"].(string); ok && name != "" {
		creds.Name = &name
	}
	if isAdmin, ok := claims["isAdmin"].(bool); ok {
		creds.IsAdmin = isAdmin
	}
	if tenant, ok := claims["tenant"].(string); ok && tenant != "" {
		creds.TenantID = &tenant
	}

	return creds, nil
}
