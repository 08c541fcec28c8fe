package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingToken is returned when no Authorization header is present.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token fails verification.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Claims carries the identity of whoever submitted an adjustment run.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// BearerAuth verifies the JWT bearer tokens submitted with adjustment run
// requests, with an optional bcrypt-hashed long-lived API key path for
// callers that cannot mint JWTs themselves.
type BearerAuth struct {
	signingKey []byte
	// apiKeyHashes lists the bcrypt hashes of accepted API keys, for
	// operators who issue long-lived API keys instead of short-lived JWTs.
	apiKeyHashes []string
}

// NewBearerAuth builds a BearerAuth verifying tokens with signingKey. An
// empty signingKey disables JWT verification entirely (development mode).
func NewBearerAuth(signingKey string, apiKeyHashes []string) *BearerAuth {
	return &BearerAuth{signingKey: []byte(signingKey), apiKeyHashes: apiKeyHashes}
}

// Authenticate validates the request's Authorization header, accepting
// either a signed JWT or one of the pre-hashed API keys.
func (a *BearerAuth) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimPrefix(header, "Bearer ")

	if a.matchesAPIKey(token) {
		return "api-key", nil
	}

	return a.validateJWT(token)
}

func (a *BearerAuth) matchesAPIKey(token string) bool {
	for _, hash := range a.apiKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
			return true
		}
	}
	return false
}

func (a *BearerAuth) validateJWT(tokenString string) (string, error) {
	if len(a.signingKey) == 0 {
		return "anonymous", nil
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// protect wraps next, rejecting requests that fail Authenticate. Requests
// are allowed through unauthenticated when signingKey is empty and no API
// keys are configured, so a local development deployment does not need to
// provision credentials just to exercise the API.
func (a *BearerAuth) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(a.signingKey) == 0 && len(a.apiKeyHashes) == 0 {
			next(w, r)
			return
		}
		if _, err := a.Authenticate(r); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next(w, r)
	}
}

// HashAPIKey hashes a plaintext API key for storage in configuration.
func HashAPIKey(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
