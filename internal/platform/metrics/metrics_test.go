package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

func TestRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	want := apperr.Forbiddenf("auth", "denied")
	if err := m.Record("insurer", "create")(want); err != want {
		t.Errorf("Record should return the error unchanged")
	}
	m.Record("insurer", "create")(nil)
	m.Record("insurer", "create")(nil)
	m.Record("insurer", "get")(errors.New("boom"))

	if got := testutil.ToFloat64(m.calls.WithLabelValues("insurer", "create", "ok")); got != 2 {
		t.Errorf("ok calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("insurer", "create", apperr.EForbidden)); got != 1 {
		t.Errorf("forbidden calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("insurer", "get", apperr.EInternal)); got != 1 {
		t.Errorf("internal calls = %v, want 1", got)
	}
}

func TestDenied(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Denied("provider", "get")
	m.Denied("provider", "get")
	if got := testutil.ToFloat64(m.denials.WithLabelValues("provider", "get")); got != 2 {
		t.Errorf("denials = %v, want 2", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	err := errors.New("x")
	if got := m.Record("a", "b")(err); got != err {
		t.Error("nil metrics must pass errors through")
	}
	m.Denied("a", "b")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Record("facility", "list")(nil)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/metrics", nil), rec)
	if err := Handler(reg)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `caremgr_manager_calls_total{code="ok",entity="facility",op="list"} 1`) {
		t.Errorf("unexpected exposition:\n%s", rec.Body.String())
	}
}
