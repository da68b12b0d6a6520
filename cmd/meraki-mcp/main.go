// Command meraki-mcp runs the Cisco Meraki MCP gateway: an HTTP server
// exposing read-only Meraki dashboard tools over the Model Context
// Protocol, fronted by an OAuth authorization server that brokers
// login to an upstream identity provider.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/macharpe/meraki-mcp/internal/auth"
	"github.com/macharpe/meraki-mcp/internal/cache"
	"github.com/macharpe/meraki-mcp/internal/config"
	"github.com/macharpe/meraki-mcp/internal/idp"
	"github.com/macharpe/meraki-mcp/internal/kv"
	"github.com/macharpe/meraki-mcp/internal/logging"
	"github.com/macharpe/meraki-mcp/internal/mcpserver"
	"github.com/macharpe/meraki-mcp/internal/meraki"
	"github.com/macharpe/meraki-mcp/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	store, err := kv.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("opening state database: %w", err)
	}
	defer store.Close()

	responseCache := cache.New(store, logger)

	merakiClient, err := meraki.NewClient(meraki.Options{
		APIKey:           cfg.MerakiAPIKey,
		BaseURL:          cfg.MerakiBaseURL,
		OrganizationsTTL: cfg.OrganizationsTTL(),
		NetworksTTL:      cfg.NetworksTTL(),
	}, responseCache)
	if err != nil {
		return fmt.Errorf("creating meraki client: %w", err)
	}

	idpClient := idp.New(idp.Options{
		ClientID:     cfg.AccessClientID,
		ClientSecret: cfg.AccessClientSecret,
		AuthorizeURL: cfg.AccessAuthorizationURL,
		TokenURL:     cfg.AccessTokenURL,
		JWKSURL:      cfg.AccessJWKSURL,
		JWKSTTL:      cfg.JWKSTTL(),
	}, responseCache, logger)

	authStore := auth.NewStore(store)
	authorizer := auth.NewAuthorizer(authStore, idpClient, logger, cfg.ServerURL, cfg.CookieEncryptionKey)
	callback := auth.NewCallbackHandler(authStore, idpClient, logger, cfg.ServerURL)

	// MCP server setup.
	mcpServer := mcpserver.NewServer(merakiClient)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	mux := server.NewMux(server.MuxConfig{
		Store:      authStore,
		IDP:        idpClient,
		Authorizer: authorizer,
		Callback:   callback,
		MCPHandler: mcpHandler,
		SSEHandler: sseHandler,
		Logger:     logger,
		ServerURL:  cfg.ServerURL,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		"listen", cfg.ListenAddr,
		"server_url", cfg.ServerURL,
		"environment", cfg.Environment,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
