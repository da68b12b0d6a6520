package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version is the reported service version.
const Version = "1.0.0"

type healthResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	Timestamp    string   `json:"timestamp"`
	OAuthEnabled bool     `json:"oauthEnabled"`
	Version      string   `json:"version"`
	Endpoints    []string `json:"endpoints"`
}

// HandleHealth returns the unauthenticated /health handler.
func HandleHealth(serverURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		resp := healthResponse{
			Status:       "OK",
			Service:      "Cisco Meraki MCP Server",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			OAuthEnabled: true,
			Version:      Version,
			Endpoints:    []string{"/mcp", "/sse", "/health", "/authorize", "/callback", "/token"},
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
