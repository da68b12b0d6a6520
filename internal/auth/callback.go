package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/macharpe/meraki-mcp/internal/idp"
	"github.com/macharpe/meraki-mcp/internal/models"
)

// CallbackHandler completes the brokered flow when the identity
// provider redirects back with an upstream authorization code.
type CallbackHandler struct {
	store     *Store
	idp       *idp.Client
	logger    *slog.Logger
	serverURL string
}

// NewCallbackHandler creates the /callback handler.
func NewCallbackHandler(store *Store, idpClient *idp.Client, logger *slog.Logger, serverURL string) *CallbackHandler {
	return &CallbackHandler{
		store:     store,
		idp:       idpClient,
		logger:    logger,
		serverURL: serverURL,
	}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	state := q.Get("state")
	if state == "" {
		http.Error(w, "Missing state parameter", http.StatusBadRequest)
		return
	}

	req, err := DecodeState(state)
	if err != nil || req.ClientID == "" {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	// The verifier is consumed in one step, so a replayed callback
	// cannot reuse it.
	verifier := h.store.ConsumeVerifier(state)
	if verifier == "" {
		http.Error(w, "Missing code verifier", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	tokens, err := h.idp.ExchangeCode(r.Context(), code, h.serverURL+"/callback", verifier)
	if err != nil {
		h.logger.Error("upstream code exchange failed", slog.String("error", err.Error()))
		http.Error(w, "Failed to exchange code", http.StatusInternalServerError)

		return
	}

	claims, err := h.idp.VerifyIDToken(r.Context(), tokens.IDToken)
	if err != nil {
		h.logger.Error("id token verification failed", slog.String("error", err.Error()))
		http.Error(w, "Failed to verify token", http.StatusUnauthorized)

		return
	}

	// Mint the gateway's own authorization code carrying the
	// authenticated identity.
	gatewayCode := RandomHex(32)
	grant := &models.Grant{
		ClientID:      req.ClientID,
		UserID:        claims.Sub,
		Scope:         req.Scope,
		RedirectURI:   req.RedirectURI,
		CodeChallenge: req.CodeChallenge,
		Props: models.UserProps{
			Login:       claims.Sub,
			Name:        claims.Name,
			Email:       claims.Email,
			AccessToken: tokens.AccessToken,
		},
		Label:     claims.Name,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(codeExpiry),
	}

	if err := h.store.SaveGrant(gatewayCode, grant); err != nil {
		h.logger.Error("saving grant", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	h.logger.Info("authorization complete",
		slog.String("client_id", req.ClientID),
		slog.String("user_id", claims.Sub),
	)

	params := url.Values{}
	params.Set("code", gatewayCode)

	if req.State != "" {
		params.Set("state", req.State)
	}

	sep := "?"
	if strings.Contains(req.RedirectURI, "?") {
		sep = "&"
	}

	http.Redirect(w, r, req.RedirectURI+sep+params.Encode(), http.StatusFound)
}
