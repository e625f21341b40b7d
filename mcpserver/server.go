// Package mcpserver publishes the resolution operations as MCP tools over
// stdio or streamable HTTP.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Azure/PMAgent-Spec/telemetry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "Spec Fetcher"

// Defaults for the HTTP transport.
const (
	DefaultAddr = "0.0.0.0:8100"
	DefaultPath = "/mcp"
)

const shutdownTimeout = 5 * time.Second

// Engine is the set of operations exposed as tools.
// engine.Engine implements it.
type Engine interface {
	BestPractice(ctx context.Context) string
	ListSpecs(ctx context.Context) string
	FetchSpec(ctx context.Context, name string) string
	GetToolManifest(ctx context.Context, name string) string
	FetchToolSpec(ctx context.Context, name string) string
}

// Server wraps the MCP server bound to an Engine.
type Server struct {
	engine   Engine
	server   *mcp.Server
	logger   *zap.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.Named("mcp")
		}
	}
}

// WithGatherer sets the registry served on /metrics by the HTTP transport.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a Server with all tools registered. Panics if eng is nil.
func New(eng Engine, version string, opts ...Option) *Server {
	if eng == nil {
		panic("mcpserver: engine must not be nil")
	}
	s := &Server{engine: eng, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server { return s.server }

// RunStdio serves one client on stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the HTTP handler: the streamable MCP endpoint at path plus
// /metrics and /healthz.
func (s *Server) Handler(path string) http.Handler {
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	observability := telemetry.Handler(s.gatherer)
	mux.Handle("/metrics", observability)
	mux.Handle("/healthz", observability)
	return mux
}

// ListenAndServe serves HTTP on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("mcpserver: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, path)
}

// Serve serves HTTP on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener, path string) error {
	srv := &http.Server{
		Handler:           s.Handler(path),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving MCP over streamable HTTP",
			zap.String("addr", ln.Addr().String()),
			zap.String("path", path))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcpserver: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http shutdown", zap.Error(err))
			return err
		}
		s.logger.Info("http server stopped")
		return nil
	})
	return g.Wait()
}
