package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opencefadb/opencefadb-cli/internal/logger"
)

// instructions tell clients how the tools fit together.
const instructions = `Resolve measurement data of the open centrifugal fan database.
Call "resolve" with an intent such as "fan=Unit-42 condition.rotational_speed=600"
to list matching data files, then "fetch" with the same intent to download them.
"query" runs a raw query in the backend's language when it is available.`

// shutdownTimeout bounds the graceful shutdown of the HTTP transport.
const shutdownTimeout = 5 * time.Second

// Server exposes the resolution engine over MCP.
type Server struct {
	ports   *Ports
	version string
	server  *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// NewServer registers the tools and resources the ports allow.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{ports: ports, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	s.server = mcp.NewServer(
		&mcp.Implementation{Name: "opencefadb", Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Version returns the version reported to clients.
func (s *Server) Version() string {
	return s.version
}

// Run serves a single client over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Debug("mcp: serving on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
