package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	emailPkg "therapro/internal/adapters/email"
	web "therapro/internal/adapters/http"
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
	"therapro/internal/config"
	domainAccount "therapro/internal/domain/account"
	"therapro/internal/domain/activity"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := storage.MigrateDB(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	stores := web.Stores{
		AccountStore:   accountStore.NewSQLiteStore(timedDB),
		TherapistStore: therapistStore.NewSQLiteStore(timedDB),
		ChildStore:     childStore.NewSQLiteStore(timedDB),
		RosterStore:    rosterStore.NewSQLiteStore(timedDB),
	}

	seed, err := loadSeed(cfg.SeedFile)
	if err != nil {
		log.Fatalf("failed to read seed roster: %v", err)
	}
	if _, err := orchestrators.ExecuteSeedRoster(ctx, seed, orchestrators.RosterDeps{Roster: stores.RosterStore}); err != nil {
		log.Fatalf("failed to seed roster: %v", err)
	}
	err = orchestrators.ExecuteSeedAccounts(ctx, orchestrators.SeedAccountsDeps{AccountStore: stores.AccountStore}, []orchestrators.AccountSeed{
		{Username: cfg.AdminUsername, Password: cfg.AdminPassword, Role: domainAccount.RoleAdmin},
		{Username: cfg.TherapistUsername, Password: cfg.TherapistPassword, Role: domainAccount.RoleTherapist, TherapistID: cfg.TherapistRecord},
	})
	if err != nil {
		log.Fatalf("failed to seed accounts: %v", err)
	}

	catalog, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	sessions, closeSessions := sessionStore(ctx, cfg)
	defer closeSessions()

	middleware.SecureCookies = cfg.IsProduction()
	server, err := web.NewServer(stores, web.Options{
		StaticDir:     cfg.StaticDir,
		CSRFKey:       cfg.CSRFKey,
		SecureCookies: cfg.IsProduction(),
		Sessions:      sessions,
		SessionTTL:    cfg.SessionTTL,
		RateLimit:     cfg.RateLimit,
		SlowRequestMs: cfg.SlowRequestMs,
		Collector:     collector,
		Metrics:       metrics.New(),
		Catalog:       catalog,
		Tickets:       ticket.NewSigner(cfg.TicketKey),
		Notifier:      orchestrators.Notifier{Sender: emailSender(cfg), From: cfg.EmailFrom},
	})
	if err != nil {
		log.Fatalf("server init failed: %v", err)
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("server_start", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", storage.LatestSchemaVersion())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown_failed", "error", err)
	}
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadSeed returns the roster used on first start. A seed file that cannot
// be decoded stops start-up rather than falling back to the built-in roster.
func loadSeed(path string) (snapshot.Snapshot, error) {
	if path == "" {
		return snapshot.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	defer f.Close()
	s, err := snapshot.Decode(f, snapshot.FormatForPath(path))
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func loadCatalog(path string) (activity.Catalog, error) {
	if path == "" {
		return activity.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return activity.Catalog{}, err
	}
	return activity.ParseCatalog(data)
}

// sessionStore picks Redis when configured so several instances can share
// logins; otherwise sessions live in process memory.
func sessionStore(ctx context.Context, cfg config.Config) (middleware.SessionStore, func()) {
	if cfg.RedisAddr == "" {
		return middleware.NewMemorySessionStore(cfg.SessionTTL), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}
	slog.Info("session_store", "backend", "redis", "addr", cfg.RedisAddr)
	return middleware.NewRedisSessionStore(client, cfg.SessionTTL), func() {
		if err := client.Close(); err != nil {
			slog.Error("redis_close_failed", "error", err)
		}
	}
}

func emailSender(cfg config.Config) emailPkg.Sender {
	if cfg.ResendKey == "" {
		if cfg.IsProduction() {
			slog.Warn("email_disabled", "reason", "THERAPRO_RESEND_KEY is not set")
		}
		return emailPkg.NewNoopSender()
	}
	return emailPkg.NewBreakerSender(emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom), 30*time.Second)
}
