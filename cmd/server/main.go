package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecofest/ecobingo/internal/config"
	"github.com/ecofest/ecobingo/internal/database"
	"github.com/ecofest/ecobingo/internal/events"
	"github.com/ecofest/ecobingo/internal/game"
	"github.com/ecofest/ecobingo/internal/handlers"
	"github.com/ecofest/ecobingo/internal/logging"
	"github.com/ecofest/ecobingo/internal/middleware"
	"github.com/ecofest/ecobingo/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env": cfg.Server.Environment,
		})
	}

	logger.Info("Starting EcoBingo server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Event bus: Redis pub/sub when running more than one instance,
	// otherwise in-process fan-out.
	var bus events.Bus
	switch cfg.Events.Backend {
	case "redis":
		bus = events.NewRedisBus(redisDB.Client)
	case "memory":
		bus = events.NewMemoryBus()
	default:
		return fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
	defer func() { _ = bus.Close() }()

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(redisAdapter)
	emailService := services.NewEmailService(&cfg.Email)
	catalogService := services.NewCatalogService(dbAdapter)
	gameService := services.NewGameService(dbAdapter, catalogService, bus, game.EasyItemPolicy{
		Version:    cfg.Game.EasyPolicyVersion,
		Categories: cfg.Game.EasyCategories,
		Keywords:   cfg.Game.EasyKeywords,
	}, cfg.Game.EasyItemSuggestLimit)
	leaderboardService := services.NewLeaderboardService(dbAdapter, userService)

	var oauthProvider services.OAuthProvider
	if cfg.OAuth.Enabled {
		provider, err := services.NewOIDCProvider(context.Background(), services.OIDCProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			IssuerURL:    cfg.OAuth.IssuerURL,
			Scopes:       cfg.OAuth.Scopes,
		})
		if err != nil {
			return fmt.Errorf("initializing oidc provider: %w", err)
		}
		oauthProvider = provider
	}

	// The first boot of a fresh database seeds the default catalog so the
	// first player can draw a full board.
	if err := catalogService.EnsureSeeded(context.Background()); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	authHandler := handlers.NewAuthHandler(userService, authService, emailService, oauthProvider, cfg.Server.Secure)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	gameHandler := handlers.NewGameHandler(gameService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	liveHandler := handlers.NewLiveHandler(bus)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userService)
	requestLogger := middleware.NewRequestLogger(logger)

	// Credential endpoints are limited per user where a session exists,
	// per client IP otherwise (register and login run anonymous).
	authRateLimiter := middleware.NewRateLimiter(redisDB.Client, 20, 15*time.Minute, "ratelimit:auth:", middleware.KeyByUser, true)

	requireUser := authMiddleware.RequireUser
	requireVerified := authMiddleware.RequireVerified
	requireAdmin := authMiddleware.RequireAdmin

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no auth)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Public read endpoints
	mux.HandleFunc("GET /api/items", catalogHandler.List)
	mux.HandleFunc("GET /api/leaderboard", leaderboardHandler.List)
	mux.HandleFunc("GET /api/stats", leaderboardHandler.Stats)

	// Auth endpoints
	mux.Handle("POST /api/auth/register", authRateLimiter.Middleware(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authRateLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("POST /api/auth/verify-email", authHandler.VerifyEmail)
	mux.Handle("POST /api/auth/resend-verification", requireUser(authRateLimiter.Middleware(http.HandlerFunc(authHandler.ResendVerification))))
	mux.HandleFunc("GET /api/auth/oidc/start", authHandler.OIDCStart)
	mux.HandleFunc("GET /api/auth/oidc/callback", authHandler.OIDCCallback)

	// Game endpoints (verified players only)
	mux.Handle("GET /api/game", requireVerified(http.HandlerFunc(gameHandler.Get)))
	mux.Handle("POST /api/game/toggle", requireVerified(http.HandlerFunc(gameHandler.Toggle)))
	mux.Handle("POST /api/game/easy", requireVerified(http.HandlerFunc(gameHandler.CompleteEasy)))
	mux.Handle("GET /api/game/easy-items", requireVerified(http.HandlerFunc(gameHandler.EasyItems)))
	mux.Handle("POST /api/game/reset", requireVerified(http.HandlerFunc(gameHandler.Reset)))
	mux.Handle("GET /api/game/image", requireVerified(http.HandlerFunc(gameHandler.Image)))

	// Live event stream
	mux.Handle("GET /api/live", requireVerified(http.HandlerFunc(liveHandler.Serve)))

	// Admin endpoints
	mux.Handle("POST /api/admin/items", requireAdmin(http.HandlerFunc(catalogHandler.Create)))
	mux.Handle("PUT /api/admin/items/{id}", requireAdmin(http.HandlerFunc(catalogHandler.Update)))
	mux.Handle("POST /api/admin/catalog/refresh", requireAdmin(http.HandlerFunc(catalogHandler.Refresh)))
	mux.Handle("POST /api/admin/boards/refresh", requireAdmin(http.HandlerFunc(gameHandler.RefreshBoards)))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = authMiddleware.Authenticate(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// The live websocket endpoint holds its connection open; hijacked
		// connections are not subject to WriteTimeout.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
