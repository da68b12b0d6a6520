// Package server provides HTTP server construction for the gateway.
package server

import (
	"log/slog"
	"net/http"

	"github.com/macharpe/meraki-mcp/internal/auth"
	"github.com/macharpe/meraki-mcp/internal/idp"
)

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	Store      *auth.Store
	IDP        *idp.Client
	Authorizer http.Handler
	Callback   http.Handler
	MCPHandler http.Handler
	SSEHandler http.Handler
	Logger     *slog.Logger
	ServerURL  string
}

// NewMux builds the HTTP mux: OAuth discovery, registration,
// authorization, callback, token, health, and the MCP transports.
// The MCP endpoints are protected by Bearer token middleware and
// wrapped in CORS handling; everything else is public.
func NewMux(cfg MuxConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/oauth-protected-resource", auth.HandleProtectedResourceMetadata(cfg.ServerURL))
	mux.HandleFunc("/.well-known/oauth-authorization-server", auth.HandleServerMetadata(cfg.ServerURL))
	mux.HandleFunc("/register", auth.HandleRegistration(cfg.Store, cfg.Logger))
	mux.Handle("/authorize", cfg.Authorizer)
	mux.Handle("/callback", cfg.Callback)
	mux.HandleFunc("/token", auth.HandleToken(cfg.Store, cfg.Logger))
	mux.HandleFunc("/health", HandleHealth(cfg.ServerURL))

	authMiddleware := auth.Middleware(cfg.Store, cfg.IDP, cfg.Logger, cfg.ServerURL)

	mux.Handle("/mcp", CORS(authMiddleware(cfg.MCPHandler)))
	mux.Handle("/sse", CORS(authMiddleware(cfg.SSEHandler)))
	mux.Handle("/sse/message", CORS(authMiddleware(cfg.SSEHandler)))

	// The root path redirects browsers into the authorization flow;
	// anything unrouted is a plain 404.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		http.Redirect(w, r, "/authorize", http.StatusFound)
	})

	return mux
}
