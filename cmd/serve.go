package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/forcerelay/forcerelay/internal/auth"
	"github.com/forcerelay/forcerelay/internal/instrumentation"
	"github.com/forcerelay/forcerelay/internal/logging"
	"github.com/forcerelay/forcerelay/internal/server"
	"github.com/forcerelay/forcerelay/internal/session"
	"github.com/forcerelay/forcerelay/internal/tools/query_tools"
	"github.com/forcerelay/forcerelay/internal/tools/sobject_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServeConfig holds the configuration for the serve command.
type ServeConfig struct {
	// HTTPAddr is the listen address for the MCP endpoint.
	HTTPAddr string

	// UserinfoURL is the Salesforce OAuth userinfo endpoint used to derive
	// the instance URL when a request does not carry one.
	UserinfoURL string

	// KeepaliveInterval is the period between SSE keepalive frames.
	KeepaliveInterval time.Duration

	// SessionIdleTimeout is how long a session may stay idle before eviction.
	SessionIdleTimeout time.Duration

	// Yolo enables write operations. Default is read-only mode.
	Yolo bool

	// Debug enables debug logging.
	Debug bool

	// Metrics configures the dedicated metrics server.
	Metrics MetricsConfig
}

func newServeCmd() *cobra.Command {
	var config ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing Salesforce tools
over the streamable HTTP transport.

Authentication:
  Every request must carry a Salesforce access token in the Authorization
  header ("Bearer <token>"). The server verifies nothing up front; the token
  is handed to Salesforce on each call. Clients that know their org can skip
  the userinfo round trip by also sending X-Salesforce-Instance-Url.

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (record creation, etc.)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadServeEnv(cmd, &config)
			return runServe(config)
		},
	}

	cmd.Flags().BoolVar(&config.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&config.HTTPAddr, "http-addr", ":8080", "HTTP server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().BoolVar(&config.Yolo, "yolo", false, "Enable write operations (record creation, etc.). Default is read-only mode.")
	cmd.Flags().StringVar(&config.UserinfoURL, "userinfo-url", auth.DefaultUserinfoURL, "Salesforce OAuth userinfo endpoint for instance URL derivation. Can also use SALESFORCE_USERINFO_URL env var.")
	cmd.Flags().DurationVar(&config.KeepaliveInterval, "keepalive-interval", session.DefaultKeepaliveInterval, "Interval between SSE keepalive frames. Can also use KEEPALIVE_INTERVAL env var.")
	cmd.Flags().DurationVar(&config.SessionIdleTimeout, "session-idle-timeout", session.DefaultIdleTimeout, "Idle time after which a session is evicted. Can also use SESSION_IDLE_TIMEOUT env var.")
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnv applies environment variable fallbacks for flags the user did
// not set explicitly.
func loadServeEnv(cmd *cobra.Command, config *ServeConfig) {
	if !cmd.Flags().Changed("http-addr") {
		if addr := os.Getenv("HTTP_ADDR"); addr != "" {
			config.HTTPAddr = addr
		}
	}

	if !cmd.Flags().Changed("userinfo-url") {
		if url := os.Getenv("SALESFORCE_USERINFO_URL"); url != "" {
			config.UserinfoURL = url
		}
	}

	if !cmd.Flags().Changed("keepalive-interval") {
		if raw := os.Getenv("KEEPALIVE_INTERVAL"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				config.KeepaliveInterval = d
			}
		}
	}

	if !cmd.Flags().Changed("session-idle-timeout") {
		if raw := os.Getenv("SESSION_IDLE_TIMEOUT"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				config.SessionIdleTimeout = d
			}
		}
	}

	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "false" {
			config.Metrics.Enabled = false
		}
	}

	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Metrics.Addr = addr
		}
	}
}

func runServe(config ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(os.Stderr, config.Debug)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	resolver := auth.NewResolver(config.UserinfoURL, logger)
	registry := session.NewRegistry(logger)

	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		registry.SetMetrics(provider.Metrics())
		audit = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	readOnly := !config.Yolo

	serverContext := server.NewServerContext(shutdownCtx, server.ServerContextConfig{
		Resolver: resolver,
		Registry: registry,
		Metrics:  provider.Metrics(),
		Audit:    audit,
		ReadOnly: readOnly,
	})
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with write operations enabled (--yolo flag is set)")
	}

	// Each session gets its own MCP server so that protocol state never
	// leaks between callers.
	newServer := func() *mcpserver.MCPServer {
		mcpSrv := mcpserver.NewMCPServer("forcerelay", version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithRecovery(),
		)
		if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
			logger.Error("failed to register tools", logging.Err(err))
		}
		return mcpSrv
	}

	// Fail fast on registration problems before accepting traffic.
	if err := registerAllTools(mcpserver.NewMCPServer("forcerelay", version), serverContext, readOnly); err != nil {
		return err
	}

	liveness := session.NewLiveness(registry, config.KeepaliveInterval, config.SessionIdleTimeout, logger)
	liveness.Start()
	defer liveness.Stop()

	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewMCPHandler(serverContext, newServer, logger))

	healthChecker := server.NewHealthChecker(serverContext)
	healthChecker.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(config.Metrics.Addr, provider, logger)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(shutdownCtx)

	g.Go(func() error {
		logger.Info("starting MCP server",
			"addr", config.HTTPAddr,
			"endpoint", "/mcp",
			"keepalive_interval", config.KeepaliveInterval.String(),
			"session_idle_timeout", config.SessionIdleTimeout.String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server stopped with error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		healthChecker.SetReady(false)

		drainCtx, drainCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer drainCancel()

		logger.Info("shutdown signal received, stopping HTTP server")
		if err := httpServer.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(drainCtx); err != nil {
				return fmt.Errorf("error shutting down metrics server: %w", err)
			}
		}
		return nil
	})

	healthChecker.SetReady(true)

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}

// registerAllTools registers all MCP tools on the given server.
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Query",
			register: func() error {
				return query_tools.RegisterQueryTools(mcpSrv, ctx)
			},
		},
		{
			name: "SObject",
			register: func() error {
				return sobject_tools.RegisterSObjectTools(mcpSrv, ctx, readOnly)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}
