package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/videowall/internal/api/models"
	"github.com/smazurov/videowall/internal/events"
	"github.com/smazurov/videowall/internal/logging"
	"github.com/smazurov/videowall/internal/version"
	"github.com/smazurov/videowall/internal/wall"
)

// Wall is the part of the stream pool the API drives.
type Wall interface {
	Grid() (width, height int)
	Status() []wall.SlotStatus
	Catalog() []string
	Reshuffle(ctx context.Context) error
	Pause()
	Resume()
	Paused() bool
}

// Options configures the API server.
type Options struct {
	Wall           Wall
	EventBus       *events.Bus  // optional, enables /api/events and /api/ws
	MetricsHandler http.Handler // optional, served at /metrics
}

// Server is the control API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	wall       Wall
	eventBus   *events.Bus
	logger     *slog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates the API on a Go 1.22+ ServeMux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("Video Wall API", "1.0.0")
	config.Info.Description = "Status and controls for the video wall"
	// Relative paths in the OpenAPI document work behind any host.
	config.Servers = []*huma.Server{}

	api := humago.New(mux, config)
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	s := newServer(api, opts)
	s.mux = mux
	s.registerRoutes()
	if s.eventBus != nil {
		mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	}
	return s
}

func newServer(api huma.API, opts *Options) *Server {
	return &Server{
		api:      api,
		wall:     opts.Wall,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
		closing:  make(chan struct{}),
	}
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Start serves on addr until Stop. It returns nil after a clean Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop closes the listener and open connections, event streams included.
func (s *Server) Stop() error {
	// Hijacked WebSocket connections are not closed by http.Server.Close.
	s.closeOnce.Do(func() { close(s.closing) })
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	return s.httpServer.Close()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				BuildID:   info.BuildID,
				GoVersion: info.GoVersion,
				Compiler:  info.Compiler,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerWallRoutes()
	s.registerLogRoutes()
	if s.eventBus != nil {
		s.registerSSERoutes()
	}
}
