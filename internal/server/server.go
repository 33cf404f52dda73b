package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iaboy/backend/internal/ai"
	"github.com/iaboy/backend/internal/api/middleware"
	"github.com/iaboy/backend/internal/config"
	"github.com/iaboy/backend/internal/emulator"
	"github.com/iaboy/backend/internal/engine/synthetic"
	httpapi "github.com/iaboy/backend/internal/http"
	"github.com/iaboy/backend/internal/logging"
	"github.com/iaboy/backend/internal/monitoring"
	"github.com/iaboy/backend/internal/ws"
)

// Server owns the HTTP server and its dependencies.
type Server struct {
	settings *config.Settings
	log      *logging.Logger
	manager  *emulator.Manager
	httpSrv  *http.Server
}

// New builds the service from settings. The engine factory defaults to the
// synthetic backend; tests and alternative deployments may inject their own.
func New(settings *config.Settings, log *logging.Logger, engineFactory emulator.EngineFactory) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}
	emulatorConfig, err := settings.BuildEmulatorConfig()
	if err != nil {
		return nil, fmt.Errorf("emulator config: %w", err)
	}
	if engineFactory == nil {
		engineFactory = synthetic.Factory
	}

	manager := emulator.NewManager(emulatorConfig, engineFactory, nil, log)
	aiClient := ai.NewClient(settings.Ollama.URL, settings.Ollama.Model, time.Duration(settings.Ollama.TimeoutSeconds)*time.Second)
	metrics := monitoring.NewMetrics()

	if !settings.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if settings.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: settings.RateLimit.RequestsPerSecond,
			Burst:             settings.RateLimit.Burst,
		}))
	}

	handlers := httpapi.NewHandlers(manager, aiClient, metrics, log)
	wsHandler := ws.NewHandler(manager, metrics, log)

	router.GET("/health", handlers.Health)
	router.GET("/games", handlers.ListGames)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := router.Group("/emulator/sessions")
	sessions.POST("", handlers.StartSession)
	sessions.GET("", handlers.ListSessions)
	sessions.POST("/:id/step", handlers.Step)
	sessions.GET("/:id/state", handlers.GetState)
	sessions.POST("/:id/reset", handlers.Reset)
	sessions.POST("/:id/save", handlers.SaveState)
	sessions.POST("/:id/load", handlers.LoadState)
	sessions.GET("/:id/health", handlers.SessionHealth)
	sessions.POST("/:id/chat", handlers.Chat)
	sessions.DELETE("/:id", handlers.CloseSession)
	router.GET("/emulator/health", handlers.GlobalHealth)

	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		settings: settings,
		log:      log,
		manager:  manager,
		httpSrv: &http.Server{
			Addr:              settings.Server.Host + ":" + settings.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Manager exposes the session registry, mainly for tests.
func (s *Server) Manager() *emulator.Manager {
	return s.manager
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.log.Info("starting emulator service", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every session so engine
// resources are released deterministically.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.manager.Shutdown()
	return err
}
