package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims Claims, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTValidator(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	v := NewJWTValidator("s3cret")
	v.now = func() time.Time { return now }

	valid := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	t.Run("valid", func(t *testing.T) {
		c, err := v.Validate(sign(t, "s3cret", valid, jwt.SigningMethodHS256))
		require.NoError(t, err)
		assert.Equal(t, "user-1", c.Subject)
		assert.Equal(t, "admin", c.Role)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.Validate("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Validate(sign(t, "other", valid, jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		_, err := v.Validate(sign(t, "s3cret", expired, jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no subject", func(t *testing.T) {
		anon := valid
		anon.Subject = ""
		_, err := v.Validate(sign(t, "s3cret", anon, jwt.SigningMethodHS256))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	v := NewJWTValidator("s3cret")
	token := sign(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, jwt.SigningMethodHS256)

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	reject := func(w http.ResponseWriter, _ *http.Request, err error) {
		status := http.StatusUnauthorized
		if !errors.Is(err, ErrMissingToken) && !errors.Is(err, ErrInvalidToken) {
			status = http.StatusInternalServerError
		}
		w.WriteHeader(status)
	}
	h := Middleware(v, reject, "/healthz")(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/units", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/units", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.Subject)
}
