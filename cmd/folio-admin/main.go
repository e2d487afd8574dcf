// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/lensfolio/folio-admin/internal/auth"
	"github.com/lensfolio/folio-admin/internal/cache"
	"github.com/lensfolio/folio-admin/internal/config"
	"github.com/lensfolio/folio-admin/internal/handler"
	"github.com/lensfolio/folio-admin/internal/logging"
	"github.com/lensfolio/folio-admin/internal/middleware"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/portfolio"
	"github.com/lensfolio/folio-admin/internal/render"
	"github.com/lensfolio/folio-admin/internal/scheduler"
	"github.com/lensfolio/folio-admin/internal/service"
	"github.com/lensfolio/folio-admin/internal/session"
	"github.com/lensfolio/folio-admin/internal/staging"
	"github.com/lensfolio/folio-admin/internal/store"
	"github.com/lensfolio/folio-admin/internal/version"
	"github.com/lensfolio/folio-admin/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "folio-admin - admin console for the portfolio backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_BACKEND_URL           Portfolio API base URL (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_GOOGLE_CLIENT_ID      Google OAuth client id (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_GOOGLE_CLIENT_SECRET  Google OAuth client secret\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SESSION_SECRET        Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_DB_PATH               SQLite database path (default: ./data/folio-admin.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_STAGING_DIR           Pending upload directory (default: ./data/staging)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_REDIS_URL             Redis URL for the identity cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  FOLIO_USERS_LIST_AUTH       Send the admin token with the users list (default: false)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the activity log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	sessionManager := session.New(db, cfg.IsDevelopment())

	identityCache, backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.IdentityCacheTTL,
		MaxSize:    10000,
	})
	defer func() { _ = identityCache.Close() }()
	slog.Info("identity cache initialized", "backend", backend, "ttl", cfg.IdentityCacheTTL)

	api, err := portfolio.New(portfolio.Options{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.APITimeout,
		UserAgent: versionInfo.UserAgent(),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating portfolio client: %w", err)
	}
	identities := auth.NewIdentities(api, identityCache, cfg.IdentityCacheTTL)
	googleOAuth := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL())

	stagingStore, err := staging.NewStore(staging.Options{
		Root:         cfg.StagingDir,
		MaxFileBytes: cfg.MaxUploadBytes(),
	})
	if err != nil {
		return fmt.Errorf("initializing staging: %w", err)
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
		Version:        versionInfo.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	eventService := service.NewEventService(db)
	_ = eventService.LogSystemEvent(context.Background(), model.EventLevelInfo, "Console started", map[string]any{
		"version": versionInfo.Version,
		"backend": cfg.BackendURL,
	})

	sched := scheduler.New(stagingStore, eventService, scheduler.Config{
		StagingTTL:     cfg.StagingTTL,
		EventRetention: cfg.EventRetention,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	if !cfg.UsersListAuth {
		slog.Warn("users list is requested without authentication; set FOLIO_USERS_LIST_AUTH=true once the backend enforces it",
			"category", model.EventCategorySystem)
	}

	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(handler.AuthHandlerConfig{
			Renderer:       renderer,
			SessionManager: sessionManager,
			Identities:     identities,
			OAuth:          googleOAuth,
			Backend:        api,
			Events:         eventService,
			RegisterDelay:  cfg.RegisterRedirectDelay,
		}),
		Admin: handler.NewAdminHandler(renderer, api),
		Products: handler.NewProductsHandler(handler.ProductsHandlerConfig{
			Renderer:       renderer,
			Products:       service.NewProductService(api, logger),
			SessionManager: sessionManager,
			Staging:        stagingStore,
			Events:         eventService,
		}),
		Users:  handler.NewUsersHandler(renderer, api, cfg.UsersListAuth),
		Events: handler.NewEventsHandler(renderer, eventService),
		Health: handler.NewHealthHandler(db, api, stagingStore.Root(), versionInfo.Version),
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second)) // uploads are forwarded to the backend in-request
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)

	// Static assets: cache for 1 day, they are not fingerprinted
	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(86400)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr()))
	authLimiter := middleware.NewRateLimiter(1, 10)

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		handler.RegisterRoutes(r, handlers, handler.RouteMiddleware{
			Shell: middleware.AdminShell(middleware.AdminShellConfig{
				Tokens:     session.NewTokens(sessionManager),
				Identities: identities,
				Flash:      renderer.SetFlash,
			}),
			AuthLimit: authLimiter.HTMLMiddleware(),
			CSRF:      csrfMiddleware,
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       30 * time.Second, // multi-image uploads
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
