package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/germainlefebvre4/cvwonder-studio/internal/config"
	"github.com/germainlefebvre4/cvwonder-studio/internal/database"
	"github.com/germainlefebvre4/cvwonder-studio/internal/handler"
	"github.com/germainlefebvre4/cvwonder-studio/internal/jobs"
	"github.com/germainlefebvre4/cvwonder-studio/internal/middleware"
	"github.com/germainlefebvre4/cvwonder-studio/internal/redis"
	"github.com/germainlefebvre4/cvwonder-studio/internal/renderer"
	"github.com/germainlefebvre4/cvwonder-studio/internal/repository"
	"github.com/germainlefebvre4/cvwonder-studio/internal/service"
	"github.com/germainlefebvre4/cvwonder-studio/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	workspace := storage.NewWorkspace(cfg.DataDir)

	// One-time explicit initialization of the renderer binary; no request
	// handler ever triggers a download.
	bootstrap := renderer.NewBootstrap(cfg.BinaryPath(), cfg.BinaryDownloadURL())
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := bootstrap.EnsureBinary(bootCtx); err != nil {
		bootCancel()
		log.Fatal().Err(err).Msg("failed to provision cvwonder binary")
	}

	sessionRepo := repository.NewSessionRepository(db.DB)
	themeRepo := repository.NewThemeRepository(db.DB)

	cvwonder := renderer.NewCVWonder(cfg.BinaryPath(), cfg.DataDir, cfg.RenderTimeout())

	catalog := service.NewThemeCatalog(themeRepo, cfg.CVWonderVersion)
	if err := catalog.SeedDefaults(bootCtx); err != nil {
		bootCancel()
		log.Fatal().Err(err).Msg("failed to seed theme catalog")
	}

	provisioner := service.NewThemeProvisioner(catalog, workspace, cvwonder)
	if _, err := provisioner.Ensure(bootCtx, cfg.DefaultTheme); err != nil {
		// The render path retries provisioning, so a cold start without
		// network access can still come up.
		log.Warn().Err(err).Str("theme", cfg.DefaultTheme).Msg("default theme not provisioned at startup")
	}
	bootCancel()

	sessionService := service.NewSessionService(
		sessionRepo, catalog, provisioner, workspace,
		cfg.DefaultTheme, cfg.DefaultRetentionDays, cfg.MaxRetentionDays,
	)
	renderLock := service.NewRedisRenderLock(redisClient.Client, cfg.RenderTimeout()+10*time.Second)
	pipeline := service.NewRenderPipeline(
		sessionService, provisioner, cvwonder, workspace, renderLock,
		cfg.DefaultTheme, cfg.ThemeStrictMode,
	)

	sessionHandler := handler.NewSessionHandler(sessionService)
	generateHandler := handler.NewGenerateHandler(pipeline)
	themeHandler := handler.NewThemeHandler(catalog)
	assetHandler := handler.NewAssetHandler(workspace, sessionService, cfg.DefaultTheme)
	infoHandler := handler.NewInfoHandler(cfg)

	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", infoHandler.Info)
		r.Get("/themes", themeHandler.List)
		r.Get("/themes/{slug}/*", assetHandler.ServeThemeAsset)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Get("/{sessionID}", sessionHandler.Get)
			r.Patch("/{sessionID}", sessionHandler.Update)
			r.Get("/{sessionID}/static/*", assetHandler.ServeSessionStatic)
			r.Get("/{sessionID}/images/*", assetHandler.ServeSessionImage)
		})

		r.With(rateLimitMiddleware.Handler).Post("/generate", generateHandler.Generate)
	})

	cleanupJob := jobs.NewCleanupJob(sessionService, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
