package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

func runRequireRole(t *testing.T, id Identity, have []string, want ...string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/members", nil)
	req = req.WithContext(WithIdentity(context.Background(), id, have))
	c := e.NewContext(req, httptest.NewRecorder())
	return RequireRole(want...)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		have []string
		want []string
		code string
	}{
		{"allowed", "alice", []string{"member"}, []string{"member", "auditor"}, ""},
		{"admin holds every role", "root", []string{RoleAdmin}, []string{"auditor"}, ""},
		{"missing role", "alice", []string{"member"}, []string{RoleAdmin}, apperr.EForbidden},
		{"no roles", "alice", nil, []string{"member"}, apperr.EForbidden},
		{"no identity", "", []string{RoleAdmin}, []string{RoleAdmin}, apperr.EUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runRequireRole(t, tt.id, tt.have, tt.want...)
			if got := apperr.ErrorCode(err); got != tt.code {
				t.Errorf("ErrorCode = %q, want %q (%v)", got, tt.code, err)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	if !HasRole([]string{"member"}, "member") {
		t.Error("expected member")
	}
	if HasRole([]string{"member"}, RoleAdmin) {
		t.Error("member is not admin")
	}
	if !HasRole([]string{RoleAdmin}, "anything") {
		t.Error("admin holds every role")
	}
}
