package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"volumetracker/config"
	"volumetracker/internal/market"
	"volumetracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Reader is the read side of the tracker served over HTTP.
type Reader interface {
	HourlyData(ctx context.Context) ([]market.HourlyRecord, error)
	DailyData(ctx context.Context, days int) ([]market.DailyRecord, error)
	View(ctx context.Context, days int) (market.View, error)
	Status() tracker.Status
}

type Server struct {
	cfg    config.ServerConfig
	reader Reader
	feed   *Feed
	logger *zap.Logger

	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the router. feed may be nil, in which case /ws is not
// registered.
func NewServer(cfg config.ServerConfig, reader Reader, feed *Feed, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{cfg: cfg, reader: reader, feed: feed, logger: logger}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), corsMiddleware(), requestLogger(logger))
	s.routes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	api := s.engine.Group("/api")
	api.GET("/data", s.getData)
	api.GET("/hourly", s.getHourly)
	api.GET("/daily", s.getDaily)
	api.GET("/status", s.getStatus)

	if s.feed != nil {
		s.engine.GET("/ws", gin.WrapH(s.feed))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called. It returns nil on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.feed != nil {
		s.feed.Close()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
