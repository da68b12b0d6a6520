package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/macharpe/meraki-mcp/internal/idp"
	"github.com/macharpe/meraki-mcp/internal/models"
)

type contextKey int

const (
	ctxIdentity contextKey = iota
	ctxRemoteIP
)

// Identity is the authenticated caller attached to the request
// context.
type Identity struct {
	UserID   string
	ClientID string
	Scope    string
	Props    models.UserProps
}

// RequestIdentity returns the authenticated identity, or nil.
func RequestIdentity(ctx context.Context) *Identity {
	v, _ := ctx.Value(ctxIdentity).(*Identity)
	return v
}

// RequestRemoteIP returns the client IP from the context, or "".
func RequestRemoteIP(ctx context.Context) string {
	v, _ := ctx.Value(ctxRemoteIP).(string)
	return v
}

// Middleware returns HTTP middleware that validates Bearer tokens on
// the MCP endpoints. Gateway-issued opaque tokens are checked against
// the store; anything shaped like a JWT is verified against the
// identity provider's key set instead, so callers holding a raw
// provider token are also accepted. Unauthenticated requests get a
// 401 with a WWW-Authenticate header pointing at the protected
// resource metadata (RFC 9728) and a JSON-RPC error body, which MCP
// clients surface better than a bare status.
func Middleware(store *Store, idpClient *idp.Client, logger *slog.Logger, serverURL string) func(http.Handler) http.Handler {
	metadataURL := serverURL + "/.well-known/oauth-protected-resource"
	wwwAuthNoToken := fmt.Sprintf(`Bearer resource_metadata="%s"`, metadataURL)
	wwwAuthInvalid := fmt.Sprintf(`Bearer error="invalid_token", resource_metadata="%s"`, metadataURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				logger.Debug("middleware: no bearer token",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				unauthorized(w, wwwAuthNoToken, "Authentication required")

				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			identity := authenticate(r.Context(), store, idpClient, token)
			if identity == nil {
				logger.Debug("middleware: invalid bearer token",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				unauthorized(w, wwwAuthInvalid, "Invalid or expired token")

				return
			}

			logger.Debug("middleware: authenticated",
				slog.String("user_id", identity.UserID),
				slog.String("client_id", identity.ClientID),
				slog.String("ip", ip),
			)

			ctx := r.Context()
			ctx = context.WithValue(ctx, ctxIdentity, identity)
			ctx = context.WithValue(ctx, ctxRemoteIP, ip)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves a bearer token to an identity. Opaque gateway
// tokens are the common case; three-part tokens are treated as
// provider JWTs.
func authenticate(ctx context.Context, store *Store, idpClient *idp.Client, token string) *Identity {
	if info := store.ValidateToken(token); info != nil {
		if time.Now().After(info.ExpiresAt) {
			return nil
		}

		return &Identity{
			UserID:   info.UserID,
			ClientID: info.ClientID,
			Scope:    info.Scope,
			Props:    info.Props,
		}
	}

	if strings.Count(token, ".") != 2 || idpClient == nil {
		return nil
	}

	claims, err := idpClient.VerifyIDToken(ctx, token)
	if err != nil {
		return nil
	}

	return &Identity{
		UserID: claims.Sub,
		Scope:  DefaultScope,
		Props: models.UserProps{
			Login: claims.Sub,
			Name:  claims.Name,
			Email: claims.Email,
		},
	}
}

// unauthorized writes a 401 with CORS headers and a JSON-RPC error
// body.
func unauthorized(w http.ResponseWriter, wwwAuth, message string) {
	w.Header().Set("WWW-Authenticate", wwwAuth)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    -32000,
			"message": message,
		},
		"id": nil,
	})
}
