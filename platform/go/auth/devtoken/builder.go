package devtoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Params captures the claims required to mint a signed token for local and CI
// environments. All fields are provided by the caller; no environment variables
// are read so the builder stays deterministic for tooling.
type Params struct {
	UserID    string        // sub claim (required)
	Email     string        // email claim (required)
	Name      string        // display name (optional but recommended)
	IsAdmin   bool          // isAdmin custom claim for backend role checks
	Tenant    string        // home organization id (optional)
	ExpiresIn time.Duration // relative expiry; default 1h if zero
	Issuer    string        // optional override; defaults to "isotek-dev"
}

// Build returns an HS256-signed JWT whose shape matches what the login
// collaborator issues in production, so it flows through the API auth
// middleware unchanged.
func Build(p Params, secret []byte, now time.Time) (string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return "", errors.New("userID is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return "", errors.New("email is required")
	}
	if len(secret) == 0 {
		return "", errors.New("signing secret is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	issuer := p.Issuer
	if strings.TrimSpace(issuer) == "" {
		issuer = "isotek-dev"
	}

	claims := jwt.MapClaims{
		"iss":     issuer,
		"sub":     p.UserID,
		"iat":     now.Unix(),
		"exp":     now.Add(expiresIn).Unix(),
		"email":   p.Email,
		"isAdmin": p.IsAdmin,
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if p.Tenant != "" {
		claims["tenant"] = p.Tenant
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
