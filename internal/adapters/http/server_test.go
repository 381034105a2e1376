package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"therapro/internal/adapters/http/middleware"
	"therapro/internal/adapters/http/perf"
	"therapro/internal/adapters/metrics"
	"therapro/internal/adapters/storage"
	accountStore "therapro/internal/adapters/storage/account"
	childStore "therapro/internal/adapters/storage/child"
	rosterStore "therapro/internal/adapters/storage/roster"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/adapters/ticket"
	"therapro/internal/application/orchestrators"
	"therapro/internal/application/snapshot"
	domainAccount "therapro/internal/domain/account"
)

const htmlAccept = "text/html,application/xhtml+xml"

type testEnv struct {
	handler  http.Handler
	sessions *middleware.MemorySessionStore
	metrics  *metrics.Metrics
	tickets  *ticket.Signer
	accounts *accountStore.SQLiteStore
	children *childStore.SQLiteStore
}

// newTestEnv serves the shipped roster with an admin, a therapist linked to
// t1 and a therapist linked to t2. CSRF is off so tests can post directly.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ts, cs := snapshot.Default().Records(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	roster := rosterStore.NewSQLiteStore(db)
	if err := roster.Load(ctx, ts, cs, false); err != nil {
		t.Fatalf("load roster: %v", err)
	}

	env := &testEnv{
		sessions: middleware.NewMemorySessionStore(time.Hour),
		metrics:  metrics.New(),
		tickets:  ticket.NewSigner([]byte("test-ticket-secret-0123456789abcdef")),
		accounts: accountStore.NewSQLiteStore(db),
		children: childStore.NewSQLiteStore(db),
	}
	err = orchestrators.ExecuteSeedAccounts(ctx, orchestrators.SeedAccountsDeps{AccountStore: env.accounts}, []orchestrators.AccountSeed{
		{Username: "admin", Password: "admin-pass", Role: domainAccount.RoleAdmin},
		{Username: "karen", Password: "karen-pass", Role: domainAccount.RoleTherapist, TherapistID: "t1"},
		{Username: "ryan", Password: "ryan-pass", Role: domainAccount.RoleTherapist, TherapistID: "t2"},
	})
	if err != nil {
		t.Fatalf("seed accounts: %v", err)
	}

	srv, err := NewServer(Stores{
		AccountStore:   env.accounts,
		TherapistStore: therapistStore.NewSQLiteStore(db),
		ChildStore:     env.children,
		RosterStore:    roster,
	}, Options{
		Sessions:  env.sessions,
		RateLimit: 10000,
		Collector: perf.NewCollector(100),
		Metrics:   env.metrics,
		Tickets:   env.tickets,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Close)
	env.handler = srv.Router()
	return env
}

// login creates a session for a seeded username and returns its cookie.
func (e *testEnv) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	acct, err := e.accounts.GetByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("GetByUsername(%s): %v", username, err)
	}
	token, err := e.sessions.Create(context.Background(), middleware.Session{
		AccountID:   acct.ID,
		Username:    acct.Username,
		Role:        acct.Role,
		TherapistID: acct.TherapistID,
	})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	return &http.Cookie{Name: "therapro_session", Value: token}
}

func (e *testEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookie *http.Cookie, html bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if html {
		req.Header.Set("Accept", htmlAccept)
	}
	return e.do(req, cookie)
}

func (e *testEnv) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", htmlAccept)
	return e.do(req, cookie)
}

func (e *testEnv) postJSON(path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, cookie)
}

func TestRoleGuard(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin")
	karen := env.login(t, "karen")

	tests := []struct {
		name         string
		path         string
		cookie       *http.Cookie
		wantStatus   int
		wantLocation string
	}{
		{name: "anonymous admin page", path: "/admin/dashboard", wantStatus: http.StatusSeeOther, wantLocation: "/login"},
		{name: "anonymous therapist page", path: "/therapist/rewards", wantStatus: http.StatusSeeOther, wantLocation: "/login"},
		{name: "therapist on admin page", path: "/admin/therapists", cookie: karen, wantStatus: http.StatusSeeOther, wantLocation: "/"},
		{name: "admin on therapist page", path: "/therapist/activities", cookie: admin, wantStatus: http.StatusSeeOther, wantLocation: "/"},
		{name: "admin on admin page", path: "/admin/dashboard", cookie: admin, wantStatus: http.StatusOK},
		{name: "therapist on therapist page", path: "/therapist/dashboard", cookie: karen, wantStatus: http.StatusOK},
		{name: "home without session", path: "/", wantStatus: http.StatusSeeOther, wantLocation: "/login"},
		{name: "home as admin", path: "/", cookie: admin, wantStatus: http.StatusSeeOther, wantLocation: "/admin/dashboard"},
		{name: "home as therapist", path: "/", cookie: karen, wantStatus: http.StatusSeeOther, wantLocation: "/therapist/dashboard"},
		{name: "stale cookie", path: "/admin/dashboard", cookie: &http.Cookie{Name: "therapro_session", Value: "gone"}, wantStatus: http.StatusSeeOther, wantLocation: "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(tt.path, tt.cookie, true)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}

func TestLogin_Form(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postForm("/login", url.Values{"username": {"karen"}, "password": {"karen-pass"}}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/therapist/dashboard" {
		t.Errorf("Location = %q, want /therapist/dashboard", loc)
	}
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "therapro_session" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("login did not set a session cookie")
	}
	if !session.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	dash := env.get("/therapist/dashboard", session, true)
	if dash.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", dash.Code)
	}
	if !strings.Contains(dash.Body.String(), "Karen Baker") {
		t.Error("dashboard should greet the linked therapist")
	}
}

// unreachableAccounts fails every lookup; other Store methods are not used.
type unreachableAccounts struct {
	accountStore.Store
}

func (unreachableAccounts) GetByUsername(context.Context, string) (domainAccount.Account, error) {
	return domainAccount.Account{}, errors.New("database is locked")
}

func TestLogin_StoreFailureIsServerError(t *testing.T) {
	m := metrics.New()
	srv, err := NewServer(Stores{AccountStore: unreachableAccounts{}}, Options{RateLimit: 10000, Metrics: m})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Close)
	handler := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{"username": {"admin"}, "password": {"admin-pass"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", htmlAccept)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "Invalid credentials") || strings.Contains(rec.Body.String(), "database is locked") {
		t.Errorf("body = %q", rec.Body.String())
	}

	scrape := httptest.NewRecorder()
	handler.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(scrape.Body.String(), `therapro_login_attempts_total{result="failure"}`) {
		t.Error("an outage is not a failed login attempt")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "admin", password: "nope"},
		{name: "unknown user", username: "ghost", password: "admin-pass"},
		{name: "empty", username: "", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postForm("/login", url.Values{"username": {tt.username}, "password": {tt.password}}, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Invalid credentials") {
				t.Error("login page should show the failure")
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("failed login must not set cookies")
			}
		})
	}
}

func TestLogin_JSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON("/login", `{"username":"admin","password":"admin-pass"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["role"] != "admin" || body["redirect"] != "/admin/dashboard" {
		t.Errorf("body = %v", body)
	}

	rec = env.postJSON("/login", `{"username":"admin","password":"bad"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}
	rec = env.postJSON("/login", `{"username":"admin","password":"x","extra":1}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestLoginPage_RedirectsWhenSignedIn(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/login", env.login(t, "admin"), true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/dashboard" {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = env.get("/login", nil, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="password"`) {
		t.Errorf("anonymous login page: %d", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t, "karen")
	before := env.sessions.Len()

	rec := env.postForm("/logout", url.Values{}, cookie)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("logout = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if env.sessions.Len() != before-1 {
		t.Error("logout should delete the session")
	}
	if rec := env.get("/therapist/dashboard", cookie, true); rec.Code != http.StatusSeeOther {
		t.Errorf("old cookie still works: %d", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/nowhere", nil, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not found") {
		t.Errorf("body = %s", rec.Body.String())
	}
	rec = env.get("/nowhere", nil, true)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Not found") {
		t.Errorf("html 404 = %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.get("/healthz", nil, false); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	env.postForm("/login", url.Values{"username": {"admin"}, "password": {"wrong"}}, nil)

	rec := env.get("/metrics", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `therapro_login_attempts_total{result="failure"} 1`) {
		t.Error("metrics should count the failed login")
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/login", nil, true)
	if got := rec.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "frame-src 'self'") {
		t.Error("CSP must allow same-origin frames for activities")
	}
}

func TestTemplatesParse(t *testing.T) {
	rd, err := newRenderer()
	if err != nil {
		t.Fatalf("newRenderer: %v", err)
	}
	for _, name := range []string{
		"login.html", "not_found.html",
		"admin_dashboard.html", "admin_therapists.html", "admin_children.html",
		"therapist_dashboard.html", "therapist_assigned_children.html",
		"therapist_activities.html", "therapist_activity_run.html", "therapist_rewards.html",
	} {
		if _, ok := rd.pages[name]; !ok {
			t.Errorf("missing page %s", name)
		}
	}
	if _, ok := rd.pages["layout.html"]; ok {
		t.Error("layout must not be a page on its own")
	}
}

func TestRenderMarkdown_EscapesHTML(t *testing.T) {
	got := string(renderMarkdown("**bold** <script>alert(1)</script>"))
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("markdown not rendered: %s", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML passed through: %s", got)
	}
}

func TestReturnTo(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{value: "/admin/dashboard", want: "/admin/dashboard"},
		{value: "/admin/therapists?assign=t1", want: "/admin/therapists?assign=t1"},
		{value: "https://evil.example/admin/", want: "/fallback"},
		{value: "//evil.example", want: "/fallback"},
		{value: "/therapist/dashboard", want: "/fallback"},
		{value: "", want: "/fallback"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"return_to": {tt.value}}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if got := returnTo(r, "/fallback"); got != tt.want {
			t.Errorf("returnTo(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
