package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadersServer() *echo.Echo {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/docs/a.txt", func(c echo.Context) error {
		return c.String(http.StatusOK, "hello")
	})
	return e
}

func TestSecurityHeadersSetsBaselineHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs/a.txt", nil)
	rec := httptest.NewRecorder()
	newHeadersServer().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "sandbox")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersAddsHSTSForSecureRequests(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs/a.txt", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	newHeadersServer().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersTrustsForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs/a.txt", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	rec := httptest.NewRecorder()
	newHeadersServer().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}
