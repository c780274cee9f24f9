package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/config"
	"github.com/jjudge-oj/contestjudge/internal/cache"
	"github.com/jjudge-oj/contestjudge/internal/db"
	"github.com/jjudge-oj/contestjudge/internal/executor"
	"github.com/jjudge-oj/contestjudge/internal/handlers"
	"github.com/jjudge-oj/contestjudge/internal/logger"
	"github.com/jjudge-oj/contestjudge/internal/mq"
	"github.com/jjudge-oj/contestjudge/internal/services"
	"github.com/jjudge-oj/contestjudge/internal/storage"
	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/internal/wrapper"
)

// Server wraps the HTTP server, router and the backends it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	cache      cache.Store
	mq         *mq.MQ
	sessions   *services.SessionService
	log        *zap.Logger
}

// Services are the use-cases the router exposes.
type Services struct {
	Users    *services.UserService
	Contests *services.ContestService
	Sessions *services.SessionService
	Judge    *services.JudgeService
	Catalog  *wrapper.Catalog
}

// New opens every backend named by cfg and wires the router.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	catalog, err := wrapper.LoadCatalog(cfg.LanguagesFile)
	if err != nil {
		return nil, err
	}
	pistonClient, err := executor.NewPistonClient(cfg.Executor, log.Named("executor"))
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	srv := &Server{db: dbConn, log: log}

	srv.cache, err = cache.New(cfg.Redis)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	srv.mq, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	contestRepo := store.NewContestRepository(dbConn)
	questionRepo := store.NewQuestionRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)
	submissionRepo := store.NewSubmissionRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	srv.sessions = services.NewSessionService(sessionRepo, contestRepo, srv.cache, log.Named("session"))
	svcs := Services{
		Users:    services.NewUserService(userRepo, sessionRepo, cfg.RegNoPrefix, log.Named("user")),
		Contests: services.NewContestService(contestRepo, questionRepo, objects, log.Named("contest")),
		Sessions: srv.sessions,
		Judge: services.NewJudgeService(pistonClient, catalog, questionRepo, submissionRepo,
			srv.sessions, mq.NewEvents(srv.mq), log.Named("judge")),
		Catalog: catalog,
	}

	if err := srv.sessions.Resume(ctx); err != nil {
		srv.close()
		return nil, fmt.Errorf("resume sessions: %w", err)
	}

	srv.router = NewRouter(cfg, log, svcs)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.Executor.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

// NewRouter builds the chi router over svcs.
func NewRouter(cfg config.Config, log *zap.Logger, svcs Services) *chi.Mux {
	authMiddleware := handlers.RequireAuth(cfg.JWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.Middleware(log),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, svcs.Users, cfg.JWTSecret)
	})
	router.Route("/languages", func(r chi.Router) {
		handlers.LanguageRouter(r, svcs.Catalog)
	})
	router.Route("/contests", func(r chi.Router) {
		handlers.ContestRouter(r, svcs.Contests, svcs.Users, authMiddleware)
		handlers.SessionRouter(r, svcs.Sessions, svcs.Users, authMiddleware)
		handlers.JudgeRouter(r, svcs.Judge, authMiddleware)
	})
	router.Route("/questions", func(r chi.Router) {
		handlers.QuestionRouter(r, svcs.Contests, svcs.Users, authMiddleware)
		handlers.StarterRouter(r, svcs.Catalog, svcs.Contests, authMiddleware)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, then stops the session clocks and
// closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			s.log.Warn("close mq", zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.Warn("close cache", zap.Error(err))
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
