// Package server wires the application together: store backend, blob
// storage, services, handlers, routes, and graceful shutdown. It is the
// composition root — every dependency is constructed here and nowhere
// else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/silentgallery/server/internal/auth"
	"github.com/silentgallery/server/internal/config"
	"github.com/silentgallery/server/internal/handler"
	"github.com/silentgallery/server/internal/mailer"
	"github.com/silentgallery/server/internal/middleware"
	"github.com/silentgallery/server/internal/repository"
	"github.com/silentgallery/server/internal/repository/postgres"
	sqliteRepo "github.com/silentgallery/server/internal/repository/sqlite"
	"github.com/silentgallery/server/internal/service"
	"github.com/silentgallery/server/internal/storage"
)

// Server owns the router and the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	store  repository.Store
}

// New builds the full dependency graph from the configuration.
//
// Backend selection happens here, once: DATABASE_URL picks Postgres over
// SQLite, S3_BUCKET picks S3 over local disk. Handlers and services only
// ever see the interfaces.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: JWT_SECRET must be set")
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	blobs, err := openStorage(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes(tokens, blobs)

	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.UsesPostgres() {
		logger.Info("using postgres store")
		return postgres.New(ctx, cfg.DatabaseURL)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		return nil, fmt.Errorf("server: creating database dir: %w", err)
	}
	logger.Info("using sqlite store", slog.String("path", cfg.SQLitePath))
	return sqliteRepo.New(cfg.SQLitePath)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.UsesS3() {
		logger.Info("using s3 storage", slog.String("bucket", cfg.S3Bucket))
		return storage.NewS3(ctx, storage.S3Options{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	}

	logger.Info("using local storage", slog.String("dir", cfg.UploadDir))
	return storage.NewLocal(cfg.UploadDir, cfg.BaseURL)
}

func (s *Server) setupRoutes(tokens *auth.TokenService, blobs storage.Store) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Services and handlers. The store satisfies all the repository
	// interfaces, so it is passed wherever one is needed.
	authService := service.NewAuthService(s.store, tokens, mailer.NewConsole(s.logger), s.cfg.BaseURL, s.logger)
	postService := service.NewPostService(s.store, s.store, s.logger)
	reactionService := service.NewReactionService(s.store, s.store, s.logger)
	uploadService := service.NewUploadService(blobs, s.logger)

	var github *auth.GitHubProvider
	if s.cfg.GitHubClientID != "" {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	reactionHandler := handler.NewReactionHandler(reactionService, s.logger)
	uploadHandler := handler.NewUploadHandler(uploadService, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/magiclink", authHandler.HandleMagicLinkRequest)
		r.Get("/magiclink/verify", authHandler.HandleMagicLinkVerify)
		r.Post("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public reads.
		r.Get("/posts", postHandler.HandleList)
		r.Get("/posts/random", postHandler.HandleRandom)
		r.Get("/reactions", reactionHandler.HandleGet)

		// Writes require a session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/posts", postHandler.HandleCreate)
			r.Post("/reactions", reactionHandler.HandleSubmit)
			r.Delete("/reactions", reactionHandler.HandleDelete)
			r.Post("/upload", uploadHandler.HandleUpload)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	// Local storage is served by this process; with S3 the returned URLs
	// point at the bucket and this route is not mounted.
	if !s.cfg.UsesS3() {
		fileServer := http.FileServer(http.Dir(s.cfg.UploadDir))
		s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", s.cfg.BaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the configured router, for tests.
func (s *Server) Router() http.Handler { return s.router }
