package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/supperclub/pkg/config"
	"github.com/diagnosis/supperclub/pkg/database"
	"github.com/diagnosis/supperclub/pkg/events"
	"github.com/diagnosis/supperclub/pkg/logger"
	mw "github.com/diagnosis/supperclub/pkg/middleware"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/auth/internal/handlers"
	"github.com/diagnosis/supperclub/services/auth/internal/oauth"
	"github.com/diagnosis/supperclub/services/auth/internal/repository"
	"github.com/diagnosis/supperclub/services/auth/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis holds OAuth state and revoked sessions
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL, "auth")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(pool)
	stateRepo := repository.NewStateRepository(rdb)

	google := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		CallbackURL:  cfg.OAuth.GoogleCallbackURL,
	})

	// Initialize services
	authService := service.NewAuthService(userRepo, rateLimitRepo, eventBus, cfg.Auth)
	oauthService := service.NewOAuthService(google, stateRepo, userRepo, eventBus, cfg.OAuth.StateTTL)
	roleService := service.NewRoleService(userRepo, eventBus)

	sessions := session.NewManager(
		session.Options{
			Secret:       cfg.Auth.JWTSecret,
			TTL:          cfg.Auth.SessionTTL,
			CookieName:   cfg.Auth.SessionCookieName,
			CookieSecure: cfg.Auth.CookieSecure,
		},
		session.NewResolver(repository.SessionAccounts{Users: userRepo}),
		session.NewRedisRevocations(rdb),
	)

	h := handlers.New(authService, oauthService, roleService, sessions)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("auth"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.Health)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))

	h.Mount(r)

	// Expired rate limit windows pile up otherwise
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				n, err := rateLimitRepo.CleanupExpired(cleanupCtx)
				if err != nil {
					logger.Warn("Rate limit cleanup failed", "error", err)
					continue
				}
				logger.Debug("Rate limit cleanup", "deleted", n)
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Services.AuthPort,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down auth service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Auth service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting auth service", "port", cfg.Services.AuthPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}
