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

	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/di"
	stockhandlers "github.com/aristath/stockwatch/internal/modules/stocks/handlers"
)

const (
	requestTimeout = 60 * time.Second
	backupTimeout  = 10 * time.Minute
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	Container *di.Container // DI container with all services
}

// Server is the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	auth           *Authenticator
	systemHandlers *SystemHandlers
	// Routes that run past requestTimeout
	longRunning map[string]bool
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	s := &Server{
		router:    chi.NewRouter(),
		log:       log,
		cfg:       cfg.Config,
		port:      cfg.Port,
		container: cfg.Container,
		auth:      NewAuthenticator(cfg.Config.AdminToken, cfg.Config.UserTokens, cfg.Log),
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Container.DB,
			cfg.Container.StockRepo,
			cfg.Container.BackupService,
			cfg.Container.AlphaVantageClient,
		),
		longRunning: map[string]bool{
			"/api/stocks/refresh": true,
			"/api/system/backup":  true,
		},
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// Synchronous batch refreshes must be able to finish writing
	writeTimeout := 15 * time.Second
	if longest := cfg.Config.Sync.RefreshTimeout + 30*time.Second; longest > writeTimeout {
		writeTimeout = longest
	}
	if backupTimeout+30*time.Second > writeTimeout {
		writeTimeout = backupTimeout + 30*time.Second
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(s.timeoutMiddleware(requestTimeout))

	// CORS
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.With(s.auth.RequireAdmin).Post("/backup", s.systemHandlers.HandleTriggerBackup)
		})

		stockHandler := stockhandlers.NewHandler(
			s.container.SyncService,
			s.container.DisplayConverter,
			s.cfg.Sync.RefreshTimeout,
			s.log,
		)
		stockHandler.RegisterRoutes(r, s.auth.RequireAdmin)
	})

}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// timeoutMiddleware bounds request contexts, except for long-running routes
// which carry their own deadline
func (s *Server) timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	limit := middleware.Timeout(timeout)
	return func(next http.Handler) http.Handler {
		bounded := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.longRunning[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs HTTP requests
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
