// Package server provides the HTTP server and routing for the scoring
// engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/fundscore/internal/config"
	"github.com/aristath/fundscore/internal/database"
	"github.com/aristath/fundscore/internal/events"
	"github.com/aristath/fundscore/internal/modules/backtest"
	"github.com/aristath/fundscore/internal/modules/navdata"
	"github.com/aristath/fundscore/internal/modules/ranking"
	"github.com/aristath/fundscore/internal/modules/registry"
	"github.com/aristath/fundscore/internal/modules/scoring"
	"github.com/aristath/fundscore/internal/reliability"
	"github.com/aristath/fundscore/internal/services"
)

// Config holds server wiring.
type Config struct {
	Log            zerolog.Logger
	Cfg            *config.Config
	ScoresDB       *database.DB
	NavRepo        *navdata.Repository
	Registry       *registry.Repository
	ScoreRepo      *scoring.ScoreRepository
	RankingRepo    *ranking.Repository
	BacktestRepo   *backtest.Repository
	BacktestEngine *backtest.Engine
	CycleService   *services.CycleService
	BackupService  *reliability.BackupService // nil when backups disabled
	EventManager   *events.Manager
}

// Server represents the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	handlers       *Handlers
	systemHandlers *SystemHandlers
	progress       *ProgressStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		handlers: NewHandlers(
			cfg.Registry,
			cfg.NavRepo,
			cfg.ScoreRepo,
			cfg.RankingRepo,
			cfg.BacktestRepo,
			cfg.BacktestEngine,
			cfg.CycleService,
			cfg.Log,
		),
		systemHandlers: NewSystemHandlers(cfg.ScoresDB, cfg.BackupService, cfg.Cfg.DataDir, cfg.Log),
		progress:       NewProgressStreamHandler(cfg.EventManager, cfg.Log),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Websocket progress stream; registered outside the timeout
		// middleware group since it is long-lived.
		r.Get("/scoring/progress", s.progress.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Minute))

			r.Post("/scoring/cycle", s.handlers.HandleRunCycle)
			r.Post("/backtest/run", s.handlers.HandleRunBacktest)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/scoring/funds/{fundID}/score", s.handlers.HandleGetScore)
			r.Get("/scoring/funds/{fundID}/ranking", s.handlers.HandleGetRanking)
			r.Get("/scoring/dates/{date}/scores", s.handlers.HandleListScores)

			r.Get("/backtest/runs", s.handlers.HandleListRuns)
			r.Get("/backtest/runs/{runID}", s.handlers.HandleGetRun)
			r.Get("/backtest/runs/{runID}/details", s.handlers.HandleGetRunDetails)

			r.Get("/navdata/funds/{fundID}/quality", s.handlers.HandleDataQuality)

			r.Get("/system/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/system/backups", s.systemHandlers.HandleListBackups)
		})
	})
}

// Start begins serving. Blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs each request with its status and timing.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
