package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/idgate/pkg/accounts"
	accountspg "github.com/platinummonkey/idgate/pkg/accounts/postgres"
	"github.com/platinummonkey/idgate/pkg/async"
	"github.com/platinummonkey/idgate/pkg/audit"
	"github.com/platinummonkey/idgate/pkg/claims"
	"github.com/platinummonkey/idgate/pkg/config"
	"github.com/platinummonkey/idgate/pkg/httputil"
	"github.com/platinummonkey/idgate/pkg/identity"
	"github.com/platinummonkey/idgate/pkg/observability"
	"github.com/platinummonkey/idgate/pkg/redirect"
	"github.com/platinummonkey/idgate/pkg/session"
	"github.com/platinummonkey/idgate/pkg/sso"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	async.SetLogger(log)
	log.Info("starting identity gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer otelProviders.Shutdown(context.Background())

	// Account directory.
	store, db, err := accountspg.Open(ctx, cfg.Directory.PostgresURL,
		cfg.Directory.PostgresMaxConns, cfg.Directory.PostgresMinConns)
	if err != nil {
		return fmt.Errorf("failed to connect to account directory: %w", err)
	}
	defer db.Close()
	log.Info("account directory connected")

	providerStorage, err := sso.NewStorage(db)
	if err != nil {
		return fmt.Errorf("failed to initialize provider storage: %w", err)
	}

	// Session attribute store.
	sessions, redisStore, err := buildSessionStore(cfg, log)
	if err != nil {
		return err
	}
	if redisStore != nil {
		defer redisStore.Close()
	}

	// Moderation policy: per-provider overrides from the provider registry
	// layered over the global default.
	overrides, err := providerStorage.ModerationOverrides(ctx)
	if err != nil {
		return fmt.Errorf("failed to load moderation overrides: %w", err)
	}
	moderation := accounts.ModerationConfig{
		ModeratedSignup:   cfg.Identity.ModeratedSignup,
		ProviderOverrides: overrides,
	}

	manager := accounts.NewManager(store, moderation, cfg.Directory.DefaultOrg, log, metrics)
	cache, err := accounts.NewSessionCache(cfg.Identity.SessionCacheSize, metrics)
	if err != nil {
		return fmt.Errorf("failed to build session identity cache: %w", err)
	}

	providers, mappings, err := buildProviders(ctx, cfg, providerStorage, log)
	if err != nil {
		return err
	}

	extractor := claims.NewExtractor(log)
	chain := identity.NewChain(
		identity.NewConfigRolesCustomizer(cfg.Identity.GlobalRoles, cfg.Identity.PerProviderRoles),
		sso.NewClaimsCustomizer(extractor, mappings),
		accounts.NewCustomizer(manager, cache),
	)

	handlers := sso.NewHandlers(providers, chain, sessions, cfg.Identity.DefaultRedirect, log, metrics)
	auditRecorder, err := audit.NewDBRecorder(db)
	if err != nil {
		return fmt.Errorf("failed to initialize login auditing: %w", err)
	}
	handlers.SetAudit(auditRecorder)
	capture := redirect.NewCapture(sessions, redirect.NewAllowlist(cfg.Identity.RedirectAllowlist), "/auth/sso/", log)

	router := mux.NewRouter()
	handlers.Register(router)
	router.HandleFunc("/auth/whoami", func(w http.ResponseWriter, r *http.Request) {
		principal, ok := handlers.Principal(r)
		if !ok {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		httputil.WriteSuccess(w, principal)
	}).Methods(http.MethodGet)

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(log),
		httputil.RecoveryMiddleware(log),
		capture.Middleware,
		handlers.PreAuthMiddleware,
	)(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := buildHealthServer(cfg, db, redisStore, metrics, providerStorage, log)

	sweeper := startSessionSweep(cfg, sessions, log)
	if sweeper != nil {
		defer sweeper.Stop()
	}

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", server.Addr).Info("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("gateway server failed: %w", err)
		}
	}()
	go func() {
		log.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("health server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("gateway server shutdown was not clean")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("health server shutdown was not clean")
	}
	log.Info("gateway stopped")
	return nil
}

// buildSessionStore picks the configured session attribute backend. The
// redis store is also returned concretely so the health checker can probe it.
func buildSessionStore(cfg *config.Config, log *observability.Logger) (session.AttributeStore, *session.RedisStore, error) {
	switch cfg.Session.Store {
	case "redis":
		store, err := session.NewRedisStore(cfg.Session.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis session store: %w", err)
		}
		log.Info("using redis session store")
		return store, store, nil
	default:
		log.Info("using in-memory session store")
		return session.NewMemoryStore(), nil, nil
	}
}

// buildProviders constructs an OIDC client per enabled provider and collects
// their claim mappings for the claims customizer. A provider whose issuer is
// unreachable at startup is skipped, not fatal.
func buildProviders(ctx context.Context, cfg *config.Config, storage *sso.Storage, log *observability.Logger) ([]*sso.OIDCProvider, map[string]sso.ClaimMappings, error) {
	configs, err := storage.ListEnabledProviders(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list identity providers: %w", err)
	}

	providers := make([]*sso.OIDCProvider, 0, len(configs))
	mappings := make(map[string]sso.ClaimMappings, len(configs))
	for _, pc := range configs {
		// Global role cleanup defaults apply unless the provider opts in
		// on its own.
		pc.ClaimMappings.RolesUppercase = pc.ClaimMappings.RolesUppercase || cfg.Identity.RolesUppercase
		pc.ClaimMappings.RolesNormalize = pc.ClaimMappings.RolesNormalize || cfg.Identity.RolesNormalize

		provider, err := sso.NewOIDCProvider(ctx, pc)
		if err != nil {
			log.WithError(err).WithField("provider", pc.Name).Warn("skipping provider, issuer discovery failed")
			continue
		}
		providers = append(providers, provider)
		mappings[pc.Name] = pc.ClaimMappings
		log.WithField("provider", pc.Name).Info("identity provider registered")
	}
	return providers, mappings, nil
}

// buildHealthServer serves liveness/readiness probes, Prometheus metrics,
// and the provider administration API on the internal port.
func buildHealthServer(cfg *config.Config, db *sql.DB, redisStore *session.RedisStore, metrics *observability.Metrics, storage *sso.Storage, log *observability.Logger) *http.Server {
	var redisClient *redis.Client
	if redisStore != nil {
		redisClient = redisStore.Client()
	}
	checker := observability.NewHealthChecker(db, redisClient)

	router := mux.NewRouter()
	router.HandleFunc("/health/live", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", checker.Readiness).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	sso.NewAdminHandlers(storage, log).Register(router)

	return &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      httputil.Chain(httputil.RequestIDMiddleware, httputil.RecoveryMiddleware(log))(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// startSessionSweep schedules expired-entry cleanup for the in-memory
// session store. Redis expires keys on its own.
func startSessionSweep(cfg *config.Config, sessions session.AttributeStore, log *observability.Logger) *cron.Cron {
	memory, ok := sessions.(*session.MemoryStore)
	if !ok {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Session.SweepInterval, func() {
		if removed := memory.Sweep(); removed > 0 {
			log.WithField("removed", removed).Debug("swept expired session attributes")
		}
	})
	if err != nil {
		log.WithError(err).Warn("invalid session sweep schedule, sweeping disabled")
		return nil
	}
	c.Start()
	return c
}
