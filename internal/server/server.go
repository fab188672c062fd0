package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/pagemill/internal/config"
	"github.com/ifuryst/pagemill/internal/service"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Services     *service.Services
	AuthService  *service.AuthService
	Scheduler    *service.Scheduler
	StatsUpdater *service.StatsUpdater
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return newServer(cfg, db, logger)
}

func newServer(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Server, error) {
	// Initialize services
	services, err := service.NewServices(cfg, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	statsInterval, err := time.ParseDuration(cfg.Scheduler.StatsInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid stats interval %q: %w", cfg.Scheduler.StatsInterval, err)
	}

	var authService *service.AuthService
	var sessions *service.SessionStore
	if cfg.Auth.Enabled {
		ttl, err := time.ParseDuration(cfg.Auth.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid session ttl %q: %w", cfg.Auth.SessionTTL, err)
		}
		sessions = service.NewSessionStore(ttl, time.Now)
		authService = service.NewAuthService(logger, cfg.Auth.TOTPSecret, cfg.Auth.Allowlist, sessions)
	}

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:       cfg,
		DB:           db,
		Router:       router,
		Logger:       logger,
		Services:     services,
		AuthService:  authService,
		Scheduler:    service.NewScheduler(&cfg.Scheduler, logger, services.Scan, services.Monitoring),
		StatsUpdater: service.NewStatsUpdater(services.Monitoring, sessions, logger, statsInterval),
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	if s.AuthService != nil {
		s.Router.Use(s.AuthService.AuthMiddleware())
	}
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.handleLogin)
			auth.POST("/logout", s.handleLogout)
		}

		api.GET("/locations", s.handleListLocations)
		api.POST("/locations", s.handleUpsertLocations)
		api.GET("/services", s.handleListServices)
		api.POST("/services", s.handleUpsertServices)
		api.POST("/preview", s.handlePreview)

		pages := api.Group("/pages")
		{
			pages.GET("", s.handleListPages)

			pages.POST("/generate", s.handleSubmitGeneration)
			pages.GET("/generate", s.handleListGenerations)
			pages.GET("/generate/:id", s.handleGetGeneration)
			pages.POST("/generate/:id/cancel", s.handleCancelGeneration)

			pages.POST("/health/scan", s.handleSubmitScan)
			pages.GET("/health/scan", s.handleListScans)
			pages.GET("/health/scan/:id", s.handleGetScan)

			pages.GET("/:id", s.handleGetPage)
			pages.POST("/:id/regenerate", s.handleRegeneratePage)
		}

		api.GET("/dashboard", s.handleDashboard)
		api.GET("/errors", s.handleListErrors)
		api.POST("/errors/:id/resolve", s.handleResolveError)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start background workers
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	s.StatsUpdater.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background workers first
	s.Scheduler.Stop()
	s.StatsUpdater.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.Server != nil {
		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	// Interrupt running jobs and wait for their final writes
	return s.Services.Close(shutdownCtx)
}
