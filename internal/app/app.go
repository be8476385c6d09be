// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gearconnect/statuspage/api/openapi"
	"github.com/gearconnect/statuspage/internal/config"
	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/gateway/mobile"
	"github.com/gearconnect/statuspage/internal/gateway/tracker"
	"github.com/gearconnect/statuspage/internal/identity"
	"github.com/gearconnect/statuspage/internal/identity/jwt"
	"github.com/gearconnect/statuspage/internal/notifications"
	"github.com/gearconnect/statuspage/internal/notifications/email"
	"github.com/gearconnect/statuspage/internal/notifications/mattermost"
	"github.com/gearconnect/statuspage/internal/pkg/ctxlog"
	"github.com/gearconnect/statuspage/internal/pkg/httputil"
	"github.com/gearconnect/statuspage/internal/pkg/metrics"
	"github.com/gearconnect/statuspage/internal/pkg/postgres"
	"github.com/gearconnect/statuspage/internal/snapshot"
	"github.com/gearconnect/statuspage/internal/subscriptions"
	"github.com/gearconnect/statuspage/internal/subscriptions/filestore"
	subspostgres "github.com/gearconnect/statuspage/internal/subscriptions/postgres"
	"github.com/gearconnect/statuspage/internal/tracing"
	"github.com/gearconnect/statuspage/internal/version"
	"github.com/gearconnect/statuspage/migrations"
)

// App represents the application instance.
type App struct {
	config          *config.Config
	logger          *slog.Logger
	db              *pgxpool.Pool
	server          *http.Server
	metricsServer   *http.Server
	backgroundStop  context.CancelFunc
	background      sync.WaitGroup
	watcher         *notifications.Watcher
	tracingShutdown tracing.ShutdownFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	tracingShutdown, err := tracing.Setup(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.Version,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	app := &App{
		config:          cfg,
		logger:          logger,
		backgroundStop:  bgCancel,
		tracingShutdown: tracingShutdown,
	}

	repo, err := app.openSubscriptionStore()
	if err != nil {
		bgCancel()
		_ = tracingShutdown(context.Background())
		return nil, err
	}

	router, err := app.setupRouter(bgCtx, repo)
	if err != nil {
		app.closeResources()
		_ = tracingShutdown(context.Background())
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if app.db != nil {
		app.goBackground(func() { app.collectDBMetrics(bgCtx) })
	}

	return app, nil
}

// openSubscriptionStore opens the configured subscription repository. The
// postgres store also migrates the schema.
func (a *App) openSubscriptionStore() (subscriptions.Repository, error) {
	cfg := a.config
	switch cfg.Subscriptions.Store {
	case config.StorePostgres:
		db, err := postgres.Connect(context.Background(), postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := postgres.Migrate(cfg.Database.URL, migrations.FS); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
		a.logger.Info("subscription store ready", "store", config.StorePostgres)
		return subspostgres.NewRepository(db), nil

	default:
		store, err := filestore.New(cfg.Subscriptions.FilePath)
		if err != nil {
			return nil, fmt.Errorf("open subscription file: %w", err)
		}
		a.logger.Info("subscription store ready", "store", config.StoreFile, "path", cfg.Subscriptions.FilePath)
		return store, nil
	}
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	if a.watcher != nil {
		a.watcher.Stop()
	}

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	for name, srv := range map[string]*http.Server{"server": a.server, "metrics server": a.metricsServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	a.closeResources()

	if err := a.tracingShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}

	return errors.Join(errs...)
}

// closeResources stops background goroutines and closes the database pool.
func (a *App) closeResources() {
	a.backgroundStop()
	a.background.Wait()
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) goBackground(fn func()) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		fn()
	}()
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter(ctx context.Context, repo subscriptions.Repository) (*chi.Mux, error) {
	cfg := a.config

	trackerClient := tracker.NewClient(cfg.Tracker, tracker.WithLogger(a.logger))
	if !trackerClient.Configured() {
		a.logger.Warn("error tracker token not set, incidents are served from mock data")
	}
	mobileClient := mobile.NewClient(cfg.Mobile, mobile.WithLogger(a.logger))
	builder := snapshot.NewBuilder(cfg.Snapshot, trackerClient, mobileClient)

	confirmer, err := a.setupNotifications(ctx, repo, builder)
	if err != nil {
		return nil, err
	}

	subsService := subscriptions.NewService(repo, confirmer)
	subsService.RefreshMetrics(ctx)
	subsHandler := subscriptions.NewHandler(subsService)

	identityService := identity.NewService(identity.AdminConfig{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}, jwt.NewAuthenticator(jwt.Config{
		SecretKey:           cfg.JWT.SecretKey,
		AccessTokenDuration: cfg.JWT.AccessTokenDuration,
	}))
	if cfg.Admin.PasswordHash == "" {
		a.logger.Warn("admin password hash not set, admin login is disabled")
	}
	identityHandler := identity.NewHandler(identityService)

	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.TracingMiddleware)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)
	r.Get("/api/openapi.yaml", openAPIHandler)
	r.Get("/docs", docsHandler)

	// The public status route sets its own wildcard CORS headers.
	snapshot.NewHandler(builder).RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.CORSMiddleware(cfg.CORS.AllowedOrigins))

		identityHandler.RegisterRoutes(r)
		subsHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))
			r.Use(httputil.RequireRole(domain.RoleAdmin))
			subsHandler.RegisterAdminRoutes(r)
		})
	})

	return r, nil
}

// setupNotifications starts the incident watcher when notifications are
// enabled and returns the confirmer for new subscriptions (nil when disabled).
func (a *App) setupNotifications(ctx context.Context, repo subscriptions.Repository, incidents notifications.IncidentSource) (subscriptions.Confirmer, error) {
	cfg := a.config.Notifications

	a.logger.Info("notifications configured",
		"enabled", cfg.Enabled,
		"email_enabled", cfg.Email.Enabled,
		"mattermost_enabled", cfg.Mattermost.WebhookURL != "",
	)
	if !cfg.Enabled {
		return nil, nil
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create notification renderer: %w", err)
	}

	var emailSender notifications.EmailSender
	if cfg.Email.Enabled {
		sender, err := email.NewSender(email.Config{
			Enabled:      true,
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUser:     cfg.Email.SMTPUser,
			SMTPPassword: cfg.Email.SMTPPassword,
			FromAddress:  cfg.Email.FromAddress,
			BatchSize:    cfg.Email.BatchSize,
			RateLimit:    cfg.Email.RateLimit,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}
		emailSender = sender
	} else {
		a.logger.Warn("email sender is disabled: subscribers will not be emailed")
	}

	var webhookSender notifications.WebhookSender
	if cfg.Mattermost.WebhookURL != "" {
		webhookSender = mattermost.NewSender(mattermost.Config{WebhookURL: cfg.Mattermost.WebhookURL})
	}

	dispatcher := notifications.NewDispatcher(
		subscriptions.NewRecipientIndex(repo),
		renderer,
		emailSender,
		webhookSender,
		cfg.BaseURL,
		a.logger,
	)

	a.watcher = notifications.NewWatcher(notifications.WatcherConfig{
		PollInterval: cfg.PollInterval,
	}, incidents, dispatcher, a.logger)
	a.watcher.Start(ctx)

	if emailSender == nil {
		return nil, nil
	}
	return dispatcher, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func openAPIHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(openapi.Spec)
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>GearConnect Status API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
