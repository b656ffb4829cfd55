package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper_PublicPaths(t *testing.T) {
	for _, path := range []string{"/health", "/health/db", "/metrics", "/api/v1/auth/register", "/api/v1/auth/token"} {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
			c.SetPath(path)
			if !AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return true for %s", path)
			}
			if !IsPublicPath(path) {
				t.Errorf("expected IsPublicPath(%s)", path)
			}
		})
	}
}

func TestAuthSkipper_ProtectedPaths(t *testing.T) {
	for _, path := range []string{"/api/v1/insurers", "/api/v1/accounts/me", "/services/Account/GetAccounts", "/"} {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
			c.SetPath(path)
			if AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return false for %s", path)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/services/Medical/GetFacilities", nil), httptest.NewRecorder())
	if !OptionalAuth(c) {
		t.Error("facade paths accept body credentials")
	}
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/facilities", nil), httptest.NewRecorder())
	if OptionalAuth(c) {
		t.Error("controller paths require a token")
	}
}
