package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"qpinta/internal/backend"
	"qpinta/internal/config"
	custommiddleware "qpinta/internal/middleware"
	"qpinta/internal/repository"
	"qpinta/internal/session"
	"qpinta/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   *Dependencies
}

// Dependencies are the long-lived clients the server routes through. A nil
// Redis client disables login rate limiting.
type Dependencies struct {
	Backend  *backend.Client
	Sessions session.Provider
	Redis    *redis.Client
}

// Open builds the dependencies described by cfg.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{Backend: backend.New(cfg.Backend, logger)}

	if cfg.NeedsRedis() {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		deps.Sessions = session.NewRedisProvider(deps.Redis)
	case config.SessionStoreBadger:
		provider, err := session.OpenBadgerProvider(cfg.Session.BadgerPath)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Sessions = provider
	case config.SessionStoreMemory, "":
		deps.Sessions = session.NewMemoryProvider()
	default:
		deps.Close()
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	return deps, nil
}

// Close releases whatever Open acquired and returns the first failure.
func (d *Dependencies) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if d.Sessions != nil {
		keep(d.Sessions.Close())
	}
	if d.Redis != nil {
		keep(d.Redis.Close())
	}
	if d.Backend != nil {
		keep(d.Backend.Close())
	}
	return first
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps *Dependencies) (*Server, error) {
	renderer, err := transport.NewRenderer(cfg.Backend.ImageBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(transport.StaticFS())))

	// Initialize repositories
	productRepo := repository.NewProductRepository(deps.Backend)
	categoryRepo := repository.NewCategoryRepository(deps.Backend)

	// Initialize handlers
	storefrontHandler := transport.NewStorefrontHandler(productRepo, categoryRepo, deps.Backend, renderer, logger)
	authHandler := transport.NewAuthHandler(deps.Backend, renderer, logger)
	adminHandler := transport.NewAdminHandler(productRepo, categoryRepo, deps.Backend, renderer, logger)

	var loginLimit func(http.Handler) http.Handler
	if deps.Redis != nil && cfg.RateLimit.LoginRequests > 0 {
		loginLimit = custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.LoginRequests,
			Window:            cfg.RateLimit.LoginWindow,
			KeyPrefix:         "qpinta:login",
		}, logger)
	}

	clientIDs := session.NewClientIDs(cfg.Session.Secret, !cfg.IsDevelopment())

	// Register routes
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.ClientIdentity(clientIDs, deps.Sessions, logger))
		r.Use(custommiddleware.LoggingMiddleware(logger))

		storefrontHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r, loginLimit)

		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireAdmin("/admin/login", logger))
			authHandler.RegisterGatedRoutes(r)
			adminHandler.RegisterRoutes(r)
		})
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.deps.Close(); err != nil {
		s.logger.Error("Failed to close server resources", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
