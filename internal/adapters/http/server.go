// Package web serves the therapy practice UI and its JSON twins.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"therapro/internal/adapters/http/middleware"
	"therapro/internal/adapters/http/perf"
	"therapro/internal/adapters/metrics"
	accountStore "therapro/internal/adapters/storage/account"
	childStore "therapro/internal/adapters/storage/child"
	rosterStore "therapro/internal/adapters/storage/roster"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/adapters/ticket"
	"therapro/internal/application/orchestrators"
	"therapro/internal/application/projections"
	domainAccount "therapro/internal/domain/account"
	"therapro/internal/domain/activity"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore   accountStore.Store
	TherapistStore therapistStore.Store
	ChildStore     childStore.Store
	RosterStore    rosterStore.Store
}

// Options configures a Server. Zero values fall back to development defaults
// except CSRFKey and Tickets, which main always sets.
type Options struct {
	StaticDir      string
	CSRFKey        []byte // nil disables CSRF checks; tests only
	SecureCookies  bool
	TrustedOrigins []string
	Sessions       middleware.SessionStore
	SessionTTL     time.Duration
	RateLimit      int // requests per second per client
	SlowRequestMs  int
	Collector      *perf.Collector
	Metrics        *metrics.Metrics // nil hides /metrics
	Catalog        activity.Catalog
	Tickets        *ticket.Signer
	Notifier       orchestrators.Notifier
}

// Server owns the handlers and their dependencies.
type Server struct {
	stores  Stores
	opts    Options
	pages   *renderer
	limiter *middleware.RateLimiter
}

// NewServer prepares a Server. Templates are parsed here so a broken
// template fails start-up rather than the first request.
func NewServer(stores Stores, opts Options) (*Server, error) {
	if opts.Sessions == nil {
		opts.Sessions = middleware.NewMemorySessionStore(opts.SessionTTL)
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	if len(opts.Catalog.Activities) == 0 {
		opts.Catalog = activity.DefaultCatalog()
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		stores:  stores,
		opts:    opts,
		pages:   pages,
		limiter: middleware.NewRateLimiter(opts.RateLimit, time.Second),
	}, nil
}

// Close stops background work started by NewServer.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) roster() projections.RosterDeps {
	return projections.RosterDeps{TherapistStore: s.stores.TherapistStore, ChildStore: s.stores.ChildStore}
}

func (s *Server) assignDeps() orchestrators.AssignDeps {
	return orchestrators.AssignDeps{
		TherapistStore: s.stores.TherapistStore,
		ChildStore:     s.stores.ChildStore,
		Notifier:       s.opts.Notifier,
	}
}

// Router builds the full route table wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics.Handler())
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir))))

	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.With(middleware.RequireAuth).Post("/logout", s.handleLogout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(domainAccount.RoleAdmin))
		r.Get("/dashboard", s.handleAdminDashboard)
		r.Get("/therapists", s.handleTherapists)
		r.Post("/therapists", s.handleCreateTherapist)
		r.Post("/therapists/{id}/delete", s.handleDeleteTherapist)
		r.Post("/therapists/{id}/assign", s.handleAssignChildren)
		r.Post("/assign", s.handleDashboardAssign)
		r.Post("/therapists/{id}/toggle/{childID}", s.handleToggleAssignment)
		r.Get("/children", s.handleChildren)
		r.Post("/children", s.handleCreateChild)
		r.Post("/children/{id}/delete", s.handleDeleteChild)
		r.Post("/children/{id}/unassign", s.handleUnassignChild)
		r.Get("/overview", s.handleOverview)
		r.Get("/perf", s.handlePerf)
	})

	r.Route("/therapist", func(r chi.Router) {
		r.Use(middleware.RequireRole(domainAccount.RoleTherapist))
		r.Get("/dashboard", s.handleTherapistDashboard)
		r.Get("/assigned-children", s.handleAssignedChildren)
		r.Get("/activities", s.handleActivities)
		r.Post("/activities/start", s.handleStartActivity)
		r.Get("/activities/run", s.handleRunActivity)
		r.Post("/activities/exit", s.handleExitActivity)
		r.Get("/rewards", s.handleRewards)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.notFound(w, r)
	})

	// Chain wraps inside-out: Timing sees every request, Auth runs before routing.
	chain := []func(http.Handler) http.Handler{
		middleware.Auth(s.opts.Sessions),
	}
	if s.opts.CSRFKey != nil {
		chain = append(chain, middleware.CSRF(s.opts.CSRFKey, s.opts.SecureCookies, s.opts.TrustedOrigins...))
	}
	chain = append(chain,
		middleware.RateLimit(s.limiter),
		middleware.SecurityHeaders,
		middleware.Timing(s.opts.Collector, s.requestObserver(), s.opts.SlowRequestMs),
	)
	return middleware.Chain(r, chain...)
}

// requestObserver avoids handing Timing a typed nil.
func (s *Server) requestObserver() middleware.RequestObserver {
	if s.opts.Metrics == nil {
		return nil
	}
	return s.opts.Metrics
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
