package httpapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcmstudio/adjustment/internal/infrastructure/httpapi"
)

func signToken(t *testing.T, key string, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := httpapi.Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestBearerAuthAcceptsValidJWT(t *testing.T) {
	auth := httpapi.NewBearerAuth("secret", nil)
	token := signToken(t, "secret", "user-1", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	subject, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestBearerAuthRejectsExpiredJWT(t *testing.T) {
	auth := httpapi.NewBearerAuth("secret", nil)
	token := signToken(t, "secret", "user-1", time.Now().Add(-time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	_, err := auth.Authenticate(req)
	assert.Error(t, err)
}

func TestBearerAuthRejectsMissingHeader(t *testing.T) {
	auth := httpapi.NewBearerAuth("secret", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", nil)

	_, err := auth.Authenticate(req)
	assert.ErrorIs(t, err, httpapi.ErrMissingToken)
}

func TestBearerAuthAcceptsHashedAPIKey(t *testing.T) {
	hash, err := httpapi.HashAPIKey("my-api-key")
	require.NoError(t, err)

	auth := httpapi.NewBearerAuth("", []string{hash})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustment-runs", nil)
	req.Header.Set("Authorization", "Bearer my-api-key")

	subject, err := auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "api-key", subject)
}
