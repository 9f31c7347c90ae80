package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gatekeep/authserver/config"
	"github.com/gatekeep/authserver/internal/db"
	"github.com/gatekeep/authserver/internal/handlers"
	"github.com/gatekeep/authserver/internal/logging"
	"github.com/gatekeep/authserver/internal/mq"
	"github.com/gatekeep/authserver/internal/services"
	"github.com/gatekeep/authserver/internal/session"
	"github.com/gatekeep/authserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	logger     *slog.Logger
}

// New wires storage, sessions, events and routes. A credential store that
// cannot be initialized is fatal: the server refuses to start.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		return nil, err
	}

	dialect, err := store.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hasher, err := store.NewBcryptHasher(cfg.Security.BcryptCost)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	users := store.NewUserStore(dbConn, dialect, db.NewMigrator(cfg), hasher, logger)
	if err := users.Initialize(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("initialize credential store: %w", err)
	}

	broker, err := mq.Connect(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var events services.EventPublisher = mq.NopPublisher{}
	if broker != nil {
		events = mq.NewEventPublisher(broker, cfg.Events.Channel)
	}

	authService := services.NewAuthService(users, sessions, events, logger)
	authHandler := handlers.NewAuthHandler(authService, services.NewGuard(sessions), handlers.CookieSettings{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.MaxAge,
	}, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.NotFound(handlers.NotFound)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, authHandler)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", port,
		"db_driver", cfg.Database.Driver,
		"events_backend", cfg.Events.Backend,
		"bcrypt_cost", hasher.Cost(),
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		if closeErr := s.mq.Close(); closeErr != nil {
			s.logger.Warn("close event broker", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
