package daemon

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/somnolab/somno/pkg/somno/logging"
)

// Config holds daemon configuration.
type Config struct {
	ListenAddr string
	DataDir    string
}

// Server is the somnod HTTP server.
type Server struct {
	cfg      Config
	http     *http.Server
	listener net.Listener
}

// NewServer creates a new daemon server and binds the listen address.
func NewServer(cfg Config, svc *Service) (*Server, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	svc.Routes(engine)

	srv := &Server{
		cfg:      cfg,
		listener: listener,
		http: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	return srv, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve starts the HTTP server. Blocks until stopped.
func (s *Server) Serve() error {
	err := s.http.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close gracefully stops the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// requestLogger logs each request with the component logger.
func requestLogger() gin.HandlerFunc {
	log := logging.Get("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
