package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/macharpe/meraki-mcp/internal/models"
	"github.com/macharpe/meraki-mcp/internal/pkce"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// HandleToken returns the /token handler. Codes are single-use: the
// grant is consumed before any validation, so a second redemption of
// the same code always fails regardless of which request wins.
func HandleToken(store *Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

		// Both JSON and form-encoded bodies are accepted.
		var req tokenRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid form data")
				return
			}

			req = tokenRequest{
				GrantType:    r.FormValue("grant_type"),
				Code:         r.FormValue("code"),
				RedirectURI:  r.FormValue("redirect_uri"),
				CodeVerifier: r.FormValue("code_verifier"),
				ClientID:     r.FormValue("client_id"),
				ClientSecret: r.FormValue("client_secret"),
			}
		}

		// RFC 6749 Section 2.3.1: client_secret_basic.
		if basicID, basicSecret, ok := r.BasicAuth(); ok {
			if req.ClientID == "" {
				req.ClientID = basicID
			}
			if req.ClientSecret == "" {
				req.ClientSecret = basicSecret
			}
		}

		if req.GrantType != "authorization_code" {
			writeJSONError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code is supported")
			return
		}

		if req.Code == "" {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "code is required")
			return
		}

		client := store.GetClient(req.ClientID)
		if client == nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
			return
		}

		// Confidential clients must present their secret.
		if len(client.SecretHash) > 0 {
			if bcrypt.CompareHashAndPassword(client.SecretHash, []byte(req.ClientSecret)) != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
				return
			}
		}

		grant := store.ConsumeGrant(req.Code)
		if grant == nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_grant", "invalid or expired authorization code")
			return
		}

		if grant.ClientID != req.ClientID {
			writeJSONError(w, http.StatusBadRequest, "invalid_grant", "code was issued to a different client")
			return
		}

		if grant.RedirectURI != "" && req.RedirectURI != grant.RedirectURI {
			writeJSONError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
			return
		}

		// PKCE binds the redemption to whoever started the flow.
		if grant.CodeChallenge != "" {
			if req.CodeVerifier == "" {
				writeJSONError(w, http.StatusBadRequest, "invalid_grant", "code_verifier is required")
				return
			}

			if !pkce.VerifyS256(req.CodeVerifier, grant.CodeChallenge) {
				writeJSONError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
				return
			}
		}

		token := RandomHex(32)
		err := store.SaveToken(token, &models.OAuthToken{
			UserID:    grant.UserID,
			ClientID:  grant.ClientID,
			Scope:     grant.Scope,
			Props:     grant.Props,
			ExpiresAt: time.Now().Add(tokenExpiry),
		})
		if err != nil {
			logger.Error("saving access token", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)

			return
		}

		logger.Info("access token issued",
			slog.String("client_id", grant.ClientID),
			slog.String("user_id", grant.UserID),
		)

		resp := tokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int(tokenExpiry.Seconds()),
			Scope:       grant.Scope,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
