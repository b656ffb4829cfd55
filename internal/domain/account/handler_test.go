package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/middleware"
)

func newTestServer(t *testing.T) (*Service, *echo.Echo) {
	t.Helper()
	svc := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop())
	e.Use(auth.DevAuthMiddleware("root", nil))
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))
	NewFacade(svc).Register(e.Group("/services"))
	return svc, e
}

func send(e *echo.Echo, method, path, login, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if login != "" {
		req.Header.Set(auth.DevAuthHeader, login)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const aliceRegistration = `{"login":"alice","password":"correct horse","first_name":"Alice","last_name":"Liddell"}`

func TestHandler_RegisterAndToken(t *testing.T) {
	_, e := newTestServer(t)

	rec := send(e, http.MethodPost, "/api/v1/auth/register", "", aliceRegistration)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var a Account
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Login != "alice" || a.ID == 0 {
		t.Errorf("unexpected account: %+v", a)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not echo the password")
	}

	rec = send(e, http.MethodPost, "/api/v1/auth/register", "", aliceRegistration)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = send(e, http.MethodPost, "/api/v1/auth/token", "", `{"login":"alice","password":"correct horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("token: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var tok auth.Token
	json.Unmarshal(rec.Body.Bytes(), &tok)
	if tok.AccessToken == "" || tok.TokenType != "Bearer" {
		t.Errorf("unexpected token: %+v", tok)
	}

	rec = send(e, http.MethodPost, "/api/v1/auth/token", "", `{"login":"alice","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rec.Code)
	}
}

func TestHandler_Me(t *testing.T) {
	_, e := newTestServer(t)
	send(e, http.MethodPost, "/api/v1/auth/register", "", aliceRegistration)

	rec := send(e, http.MethodGet, "/api/v1/accounts/me", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var a Account
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.Login != "alice" {
		t.Errorf("expected alice, got %s", a.Login)
	}

	rec = send(e, http.MethodGet, "/api/v1/accounts/1", "mallory", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown login: expected 401, got %d", rec.Code)
	}
}

func TestHandler_CreateMemberRequiresAdmin(t *testing.T) {
	svc, e := newTestServer(t)
	send(e, http.MethodPost, "/api/v1/auth/register", "", aliceRegistration)

	body := `{"login":"bob","password":"bob password","role":"member"}`
	rec := send(e, http.MethodPost, "/api/v1/members", "alice", body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member caller: expected 403, got %d", rec.Code)
	}

	// no dev login header means the default admin
	rec = send(e, http.MethodPost, "/api/v1/members", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin caller: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "$2") {
		t.Error("response must not contain the password hash")
	}

	rec = send(e, http.MethodPost, "/api/v1/accounts", "bob", `{"login":"bob","first_name":"Bob","last_name":"Builder"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if _, err := svc.GetMyAccount(context.Background(), "bob"); err != nil {
		t.Errorf("expected bob to have an account: %v", err)
	}
}

func TestFacade_Account(t *testing.T) {
	_, e := newTestServer(t)

	rec := send(e, http.MethodPost, "/services/Account/Register", "", `{"entity":`+aliceRegistration+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Register: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	creds := `"credentials":{"login":"alice","password":"correct horse"}`
	rec = send(e, http.MethodPost, "/services/Account/Login", "", `{`+creds+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Login: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Result auth.Token `json:"result"`
	}
	json.Unmarshal(rec.Body.Bytes(), &login)
	if login.Result.AccessToken == "" {
		t.Error("expected an access token")
	}

	rec = send(e, http.MethodPost, "/services/Account/GetMyAccount", "", `{`+creds+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("GetMyAccount: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var me struct {
		Result Account `json:"result"`
	}
	json.Unmarshal(rec.Body.Bytes(), &me)
	if me.Result.Login != "alice" {
		t.Errorf("expected alice, got %+v", me.Result)
	}

	rec = send(e, http.MethodPost, "/services/Account/GetAccountById", "",
		`{"credentials":{"login":"alice","password":"wrong"},"id":1}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad credentials: expected 401, got %d", rec.Code)
	}
}

func TestHandler_SetMemberActive(t *testing.T) {
	_, e := newTestServer(t)
	send(e, http.MethodPost, "/api/v1/auth/register", "", aliceRegistration)
	send(e, http.MethodPost, "/api/v1/auth/register", "",
		`{"login":"bob","password":"bob password","first_name":"Bob","last_name":"Builder"}`)
	token := `{"login":"alice","password":"correct horse"}`

	rec := send(e, http.MethodPut, "/api/v1/members/alice/active", "bob", `{"active":false}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member caller: expected 403, got %d", rec.Code)
	}
	rec = send(e, http.MethodPut, "/api/v1/members/alice/active", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing flag: expected 400, got %d", rec.Code)
	}
	rec = send(e, http.MethodPut, "/api/v1/members/nobody/active", "", `{"active":false}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown login: expected 404, got %d", rec.Code)
	}

	rec = send(e, http.MethodPut, "/api/v1/members/alice/active", "", `{"active":false}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disable: expected 204, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := send(e, http.MethodPost, "/api/v1/auth/token", "", token); rec.Code != http.StatusUnauthorized {
		t.Errorf("disabled member: expected 401, got %d", rec.Code)
	}

	send(e, http.MethodPut, "/api/v1/members/alice/active", "", `{"active":true}`)
	if rec := send(e, http.MethodPost, "/api/v1/auth/token", "", token); rec.Code != http.StatusOK {
		t.Errorf("enabled member: expected 200, got %d", rec.Code)
	}
}
