package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoginCounter(t *testing.T) {
	m := New()
	m.Login(true)
	m.Login(false)
	m.Login(false)

	if got := testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginSuccess)); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginFailure)); got != 2 {
		t.Errorf("failure = %v, want 2", got)
	}
}

func TestRosterChangeCounter(t *testing.T) {
	m := New()
	m.RosterChange(EntityAssignment, OpAssign, 3)
	m.RosterChange(EntityAssignment, OpAssign, 0)
	m.RosterChange(EntityChild, OpCreate, 1)

	if got := testutil.ToFloat64(m.rosterChanges.WithLabelValues(EntityAssignment, OpAssign)); got != 3 {
		t.Errorf("assignment/assign = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.rosterChanges.WithLabelValues(EntityChild, OpCreate)); got != 1 {
		t.Errorf("child/create = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Login(true)
	m.RosterChange(EntityChild, OpDelete, 1)
	m.ObserveRequest(http.MethodGet, 200, time.Millisecond)
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.Login(true)
	m.ObserveRequest(http.MethodGet, http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`therapro_login_attempts_total{result="success"} 1`,
		`therapro_http_request_duration_seconds_count{method="GET",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
