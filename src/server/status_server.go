package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tradier-streamer/src/interfaces"
	"tradier-streamer/src/logger"
	"tradier-streamer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// StatusServer
// -----------------------------------------------------------------------------

// StatusServer serves read-only health, status and session history over HTTP
type StatusServer struct {
	Config *models.MConfig
	Logger *logger.Logger

	status interfaces.IStatusProvider
	store  interfaces.ISessionStore
	engine *gin.Engine
	http   *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewStatusServer builds the router. store may be nil.
func NewStatusServer(cfg *models.MConfig, logger *logger.Logger, status interfaces.IStatusProvider, store interfaces.ISessionStore) *StatusServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &StatusServer{
		Config: cfg,
		Logger: logger,
		status: status,
		store:  store,
		engine: engine,
	}
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *StatusServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/status", s.getStatus)
	api.GET("/sessions", s.getSessions)
}

// Handler exposes the router (tests use it with httptest)
func (s *StatusServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving until Stop is called
func (s *StatusServer) Start() error {
	s.Logger.Info("status-server : listening on %s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop shuts the listener down, waiting for in-flight requests until ctx ends
func (s *StatusServer) Stop(ctx context.Context) error {
	s.Logger.Info("status-server : shutting down")
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *StatusServer) getHealth(c *gin.Context) {
	st := s.status.GetStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"running":        st.Running,
		"session_active": st.SessionActive,
	})
}

// -----------------------------------------------------------------------------

func (s *StatusServer) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.GetStatus())
}

// -----------------------------------------------------------------------------

func (s *StatusServer) getSessions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	if s.store == nil {
		c.JSON(http.StatusOK, []models.MSessionRecord{})
		return
	}

	records, err := s.store.ListRecent(limit)
	if err != nil {
		s.Logger.Error("status-server : failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, records)
}
