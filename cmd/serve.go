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

	"github.com/giantswarm/llm-fleet/internal/catalog"
	"github.com/giantswarm/llm-fleet/internal/config"
	"github.com/giantswarm/llm-fleet/internal/fleet"
	mcptools "github.com/giantswarm/llm-fleet/internal/mcp"
	"github.com/giantswarm/llm-fleet/internal/provision"
	"github.com/giantswarm/llm-fleet/internal/registry"
	"github.com/giantswarm/llm-fleet/internal/schedule"
	"github.com/giantswarm/llm-fleet/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

func newServeCmd() *cobra.Command {
	var (
		transport    string
		httpAddr     string
		httpEndpoint string
		configPath   string
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server to expose fleet provisioning tools via the Model
Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default, for IDE integration)
  - streamable-http: HTTP with streaming support (for remote access)

When --config is given, placement handles and the hub secret reference are
taken from the fleet configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}

			namespace, _ := cmd.Flags().GetString("namespace")
			kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
			inCluster, _ := cmd.Flags().GetBool("in-cluster")

			var placement provision.Placement
			var hubSecret config.SecretRef
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				namespace = cfg.Namespace
				placement = provision.Placement{
					NodeSelector:     cfg.Shared.NodeSelector,
					ServiceAccount:   cfg.Shared.ServiceAccount,
					EncryptionKeyRef: cfg.Shared.EncryptionKey,
				}
				hubSecret = cfg.HubSecret
			}

			sc := &server.ServerContext{
				Catalog:   catalog.Default(),
				Namespace: namespace,
			}

			manager, err := provision.NewManager(namespace, kubeconfig, inCluster, placement)
			if err != nil {
				slog.Warn("endpoint manager not available", "error", err)
			} else {
				sc.Manager = manager
			}

			kubeClient, err := newKubeClient(cmd)
			if err != nil {
				slog.Warn("kubernetes client not available", "error", err)
			} else {
				sc.Publisher = registry.NewPublisher(kubeClient, namespace)
				sc.Scheduler = schedule.NewScheduler(kubeClient, namespace, "")

				if sc.Manager != nil {
					var tokens fleet.TokenSource
					if !hubSecret.Empty() {
						tokens = provision.NewSecretTokenSource(kubeClient, namespace,
							hubSecret.Name, hubSecret.Key)
					}
					sc.Resolver = fleet.NewResolver(sc.Catalog, sc.Manager, tokens)
				}
			}

			// Create MCP server.
			mcpSrv := mcpserver.NewMCPServer("llm-fleet", rootCmd.Version,
				mcpserver.WithToolCapabilities(true),
			)

			if err := mcptools.RegisterTools(mcpSrv, sc); err != nil {
				return fmt.Errorf("failed to register MCP tools: %w", err)
			}

			// Set up graceful shutdown.
			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			switch transport {
			case transportStdio:
				return runStdioServer(mcpSrv)
			case transportStreamableHTTP:
				fmt.Printf("Starting llm-fleet MCP server with %s transport...\n", transport)
				return runHTTPServer(shutdownCtx, mcpSrv, httpAddr, httpEndpoint)
			default:
				return fmt.Errorf("unsupported transport: %s (supported: stdio, streamable-http)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Fleet configuration file (optional)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr, endpoint string) error {
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpoint),
	)

	mux := http.NewServeMux()
	mux.Handle(endpoint, mcpHandler)

	// Health check.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	fmt.Printf("  HTTP endpoint: %s\n", endpoint)
	fmt.Printf("  Health: /healthz\n")

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	fmt.Println("HTTP server stopped")
	return nil
}
