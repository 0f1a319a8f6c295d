// Package api exposes the playlist session over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/glefebvre/zapper/internal/config"
	"github.com/glefebvre/zapper/internal/logger"
	"github.com/glefebvre/zapper/internal/models"
	"github.com/glefebvre/zapper/internal/scheduler"
	"github.com/glefebvre/zapper/internal/session"
)

// DocumentLoader retrieves a playlist document from a URL or local path
type DocumentLoader interface {
	Load(ctx context.Context, source string) (string, error)
}

// History is the persistence the API reads and writes
type History interface {
	SetPlaylistURL(ctx context.Context, url string) error
	FailRun(ctx context.Context, source string, cause error) (*models.LoadRun, error)
	RecentRuns(ctx context.Context, limit int) ([]models.LoadRun, error)
}

// Server represents the API server
type Server struct {
	router  *gin.Engine
	http    *http.Server
	loop    *scheduler.Loop
	session *session.Session
	loader  DocumentLoader
	history History
	log     *logger.Logger
}

// Options holds the collaborators of a Server
type Options struct {
	Loop    *scheduler.Loop
	Session *session.Session
	Loader  DocumentLoader
	History History
	Config  config.APIConfig
	Logger  *logger.Logger
}

// NewServer creates a new API server instance
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.AppLogger()
	}

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(errorHandlerMiddleware(log))
	router.Use(cors.New(corsConfig(opts.Config.CORSOrigins)))

	s := &Server{
		router:  router,
		loop:    opts.Loop,
		session: opts.Session,
		loader:  opts.Loader,
		history: opts.History,
		log:     log,
	}

	s.setupRoutes()

	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Request-ID")
	cfg.ExposeHeaders = []string{"X-Request-ID"}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Handler returns the HTTP handler, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the API server on the specified port and blocks until it stops
func (s *Server) Run(port int) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.WithFields(map[string]interface{}{
		"port": port,
	}).Info("api server listening")

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops a running server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Playlist loading and progress
		v1.POST("/playlist", s.loadPlaylist)
		v1.GET("/status", s.getStatus)

		// Filtering
		v1.GET("/categories", s.listCategories)
		v1.PUT("/filter", s.setFilter)

		// Materialized list
		v1.GET("/channels", s.listChannels)
		v1.POST("/channels/more", s.loadMore)
		v1.POST("/channels/scroll", s.scroll)
		v1.POST("/channels/:id/play", s.playChannel)

		// Load history
		v1.GET("/history", s.listHistory)
	}
}
