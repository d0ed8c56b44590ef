package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipdeck/clipdeck-agent/internal/assembly"
	"github.com/clipdeck/clipdeck-agent/internal/games"
	"github.com/clipdeck/clipdeck-agent/internal/jobs"
	"github.com/clipdeck/clipdeck-agent/internal/preview"
	"github.com/clipdeck/clipdeck-agent/internal/steam"
	"github.com/clipdeck/clipdeck-agent/internal/upload"
)

// Server is the agent's local HTTP API. It binds to loopback only; the
// desktop UI is the intended client, not the network.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port          int
	UserdataDir   string
	ExportDir     string
	CacheDir      string
	Repository    jobs.Repository
	Runner        *jobs.Runner
	Scanner       *steam.Scanner
	Assembler     *assembly.Assembler
	Games         *games.Resolver
	Authenticator *upload.Authenticator
	Preview       *preview.Server
	Logger        *slog.Logger
	StartTime     time.Time
	DeviceID      string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
