package auth

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/macharpe/meraki-mcp/internal/idp"
	"github.com/macharpe/meraki-mcp/internal/models"
	"github.com/macharpe/meraki-mcp/internal/pkce"
)

// approvalPage renders the consent dialog shown before the user is
// sent to the identity provider. The encoded authorization request
// rides along in the hidden state field.
var approvalPage = template.Must(template.New("approval").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.ClientName}} | Authorization Request</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    background: #f5f5f5;
    color: #1a1a1a;
    display: flex;
    align-items: center;
    justify-content: center;
    min-height: 100vh;
  }
  .card {
    background: #fff;
    border: 1px solid #e0e0e0;
    border-radius: 8px;
    padding: 2.5rem 2rem;
    width: 100%;
    max-width: 420px;
    box-shadow: 0 1px 3px rgba(0,0,0,0.06);
  }
  .card h1 {
    font-size: 1.25rem;
    font-weight: 600;
    margin-bottom: 0.25rem;
  }
  .card p.sub {
    font-size: 0.85rem;
    color: #666;
    margin-bottom: 1.5rem;
  }
  .client-info {
    background: #f8f9fa;
    border: 1px solid #e0e0e0;
    border-radius: 6px;
    padding: 0.6rem 0.75rem;
    font-size: 0.85rem;
    margin-bottom: 1rem;
  }
  .client-info p { margin-bottom: 0.3rem; }
  .client-info p:last-child { margin-bottom: 0; }
  .client-info .uri { color: #666; word-break: break-all; }
  .actions { display: flex; gap: 0.75rem; }
  button {
    flex: 1;
    padding: 0.6rem;
    border-radius: 6px;
    font-size: 0.9rem;
    font-weight: 500;
    cursor: pointer;
    transition: background 0.15s;
  }
  button.approve {
    background: #1a1a1a;
    color: #fff;
    border: none;
  }
  button.approve:hover { background: #333; }
  button.cancel {
    background: transparent;
    color: #1a1a1a;
    border: 1px solid #d0d0d0;
  }
</style>
</head>
<body>
<div class="card">
  <h1>Cisco Meraki MCP Server</h1>
  <p class="sub">This server gives AI assistants read-only access to Meraki network management.</p>
  <div class="client-info">
    <p><strong>{{.ClientName}}</strong> is requesting access.</p>
    {{if .ClientURI}}<p class="uri">Website: {{.ClientURI}}</p>{{end}}
    {{if .RedirectURI}}<p class="uri">You will be redirected to: <code>{{.RedirectURI}}</code></p>{{end}}
  </div>
  <p class="sub">If you approve, you will be redirected to complete authentication with your identity provider.</p>
  <form method="POST">
    <input type="hidden" name="state" value="{{.State}}">
    <div class="actions">
      <button type="button" class="cancel" onclick="window.history.back()">Cancel</button>
      <button type="submit" class="approve">Approve</button>
    </div>
  </form>
</div>
</body>
</html>`))

type approvalData struct {
	ClientName  string
	ClientURI   string
	RedirectURI string
	State       string
}

// Authorizer handles the /authorize endpoint: consent, the approval
// cookie fast path, and the redirect to the upstream provider.
type Authorizer struct {
	store        *Store
	idp          *idp.Client
	logger       *slog.Logger
	serverURL    string
	cookieSecret string
}

// NewAuthorizer creates the /authorize handler state.
func NewAuthorizer(store *Store, idpClient *idp.Client, logger *slog.Logger, serverURL, cookieSecret string) *Authorizer {
	return &Authorizer{
		store:        store,
		idp:          idpClient,
		logger:       logger,
		serverURL:    serverURL,
		cookieSecret: cookieSecret,
	}
}

// ServeHTTP dispatches GET (render or skip consent) and POST (consent
// form submission).
func (a *Authorizer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.handleGET(w, r)
	case http.MethodPost:
		a.handlePOST(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *Authorizer) handleGET(w http.ResponseWriter, r *http.Request) {
	req, err := ParseAuthRequest(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	client := a.store.GetClient(req.ClientID)
	if client == nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !validateRedirectURI(client, req.RedirectURI) {
		http.Error(w, "redirect_uri not registered for this client", http.StatusBadRequest)
		return
	}

	// Returning users skip the dialog when the signed cookie already
	// vouches for this client.
	if ClientApproved(r, req.ClientID, a.cookieSecret) {
		a.redirectToUpstream(w, r, req)
		return
	}

	clientName := client.ClientName
	if clientName == "" {
		clientName = "Unknown MCP Client"
	}

	data := approvalData{
		ClientName:  clientName,
		ClientURI:   client.ClientURI,
		RedirectURI: req.RedirectURI,
		State:       EncodeState(req),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
	_ = approvalPage.Execute(w, data)
}

func (a *Authorizer) handlePOST(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	req, err := DecodeState(r.FormValue("state"))
	if err != nil || req.ClientID == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	client := a.store.GetClient(req.ClientID)
	if client == nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !validateRedirectURI(client, req.RedirectURI) {
		http.Error(w, "redirect_uri not registered for this client", http.StatusBadRequest)
		return
	}

	// Record the approval so future authorizations skip consent.
	http.SetCookie(w, approvalCookie(r, req.ClientID, a.cookieSecret))

	a.redirectToUpstream(w, r, req)
}

// redirectToUpstream starts the brokered PKCE flow: generate a
// verifier, persist it keyed by the encoded request, and send the
// user-agent to the identity provider.
func (a *Authorizer) redirectToUpstream(w http.ResponseWriter, r *http.Request, req *models.AuthRequest) {
	verifier := pkce.NewVerifier()
	state := EncodeState(req)

	if err := a.store.SaveVerifier(state, verifier); err != nil {
		a.logger.Error("saving pkce verifier", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	authURL := a.idp.AuthorizeURL(a.callbackURL(), state, pkce.Challenge(verifier))

	a.logger.Info("redirecting to identity provider",
		slog.String("client_id", req.ClientID),
	)

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (a *Authorizer) callbackURL() string {
	return a.serverURL + "/callback"
}

// validateRedirectURI checks redirectURI against the client's
// registered URIs. HTTPS URIs require an exact match; loopback URIs
// may vary port and path per RFC 8252 Section 7.3. A client with no
// registered URIs is limited to loopback redirects, which keeps a
// leaked client_id from redirecting codes to an attacker's server.
func validateRedirectURI(client *models.OAuthClient, redirectURI string) bool {
	if redirectURI == "" {
		return false
	}

	if len(client.RedirectURIs) == 0 {
		u, err := url.Parse(redirectURI)
		if err != nil {
			return false
		}

		return u.Scheme == "http" && isLoopbackHost(u.Hostname())
	}

	for _, registered := range client.RedirectURIs {
		if redirectURI == registered {
			return true
		}

		if isLocalhostPrefix(registered) && isLoopbackRedirect(redirectURI, registered) {
			return true
		}
	}

	return false
}

func isLocalhostPrefix(uri string) bool {
	return uri == "http://127.0.0.1" || uri == "http://localhost"
}

func isLoopbackHost(host string) bool {
	return host == "127.0.0.1" || host == "localhost" || host == "::1"
}

// isLoopbackRedirect compares scheme and hostname as parsed URLs to
// prevent DNS confusion (e.g. 127.0.0.1.evil.com).
func isLoopbackRedirect(redirectURI, registeredPrefix string) bool {
	ru, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}

	pu, err := url.Parse(registeredPrefix)
	if err != nil {
		return false
	}

	return ru.Scheme == pu.Scheme && ru.Hostname() == pu.Hostname()
}
