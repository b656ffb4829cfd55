package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims(sub string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "caremgr",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: []string{"member"},
	}
}

func runJWT(t *testing.T, cfg JWTConfig, path, header string) (echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	var called bool
	var seen echo.Context
	h := JWTMiddleware(cfg)(func(c echo.Context) error {
		called = true
		seen = c
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	if seen == nil {
		seen = c
	}
	return seen, called, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected HTTP %d error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "/api/v1/insurers", "")
	expectStatus(t, err, http.StatusUnauthorized)
	if called {
		t.Error("handler should not run")
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "/", tt.header)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, validClaims("alice"), testSigningKey)

	c, called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey, Issuer: "caremgr"}, "/", "Bearer "+tokenStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler was not called")
	}
	ctx := c.Request().Context()
	if got := IdentityFromContext(ctx); got != "alice" {
		t.Errorf("expected identity alice, got %q", got)
	}
	if roles := RolesFromContext(ctx); len(roles) != 1 || roles[0] != "member" {
		t.Errorf("unexpected roles %v", roles)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	expired := validClaims("alice")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExp := validClaims("alice")
	noExp.ExpiresAt = nil

	noSubject := validClaims("")

	tests := []struct {
		name  string
		token string
	}{
		{"wrong key", createTestToken(t, validClaims("alice"), []byte("another-key"))},
		{"expired", createTestToken(t, expired, testSigningKey)},
		{"no expiry", createTestToken(t, noExp, testSigningKey)},
		{"no subject", createTestToken(t, noSubject, testSigningKey)},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, called, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "/", "Bearer "+tt.token)
			expectStatus(t, err, http.StatusUnauthorized)
			if called {
				t.Error("handler should not run")
			}
		})
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	claims := validClaims("alice")
	claims.Issuer = "someone-else"
	tokenStr := createTestToken(t, claims, testSigningKey)

	_, _, err := runJWT(t, JWTConfig{SigningKey: testSigningKey, Issuer: "caremgr"}, "/", "Bearer "+tokenStr)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_SkipperAndOptional(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper, Optional: OptionalAuth}

	_, called, err := runJWT(t, cfg, "/health", "")
	if err != nil || !called {
		t.Fatalf("public path should pass, err=%v called=%v", err, called)
	}

	c, called, err := runJWT(t, cfg, "/services/Insurance/GetInsurers", "")
	if err != nil || !called {
		t.Fatalf("facade path should pass without token, err=%v called=%v", err, called)
	}
	if id := IdentityFromContext(c.Request().Context()); id != "" {
		t.Errorf("expected no identity, got %q", id)
	}

	_, _, err = runJWT(t, cfg, "/services/Insurance/GetInsurers", "Bearer bogus")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()

	run := func(header string) Identity {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(DevAuthHeader, header)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		var got Identity
		h := DevAuthMiddleware("admin", nil)(func(c echo.Context) error {
			got = IdentityFromContext(c.Request().Context())
			return nil
		})
		if err := h(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return got
	}

	if got := run(""); got != "admin" {
		t.Errorf("expected default login, got %q", got)
	}
	if got := run("bob"); got != "bob" {
		t.Errorf("expected header login, got %q", got)
	}
}

func TestDevAuthMiddleware_BearerUsesFallback(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims("carol"), testSigningKey))
	c := e.NewContext(req, httptest.NewRecorder())

	var got Identity
	mw := DevAuthMiddleware("admin", JWTMiddleware(JWTConfig{SigningKey: testSigningKey}))
	if err := mw(func(c echo.Context) error {
		got = IdentityFromContext(c.Request().Context())
		return nil
	})(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "carol" {
		t.Errorf("expected token subject, got %q", got)
	}
}
