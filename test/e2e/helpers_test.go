package e2e_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/macharpe/meraki-mcp/internal/auth"
	"github.com/macharpe/meraki-mcp/internal/cache"
	"github.com/macharpe/meraki-mcp/internal/idp"
	"github.com/macharpe/meraki-mcp/internal/kv"
	"github.com/macharpe/meraki-mcp/internal/mcpserver"
	"github.com/macharpe/meraki-mcp/internal/meraki"
	"github.com/macharpe/meraki-mcp/internal/server"
	"github.com/macharpe/meraki-mcp/internal/tokencodec"
)

const (
	cookieSecret = "e2e-cookie-secret"
	pkceVerifier = "e2e-test-pkce-verifier-that-is-long-enough"
	redirectURI  = "http://127.0.0.1:19876/callback"
	upstreamCode = "upstream-code-1"
	upstreamKid  = "e2e-kid-1"
)

// harness holds the full e2e stack: the gateway HTTP server backed by
// a fake upstream identity provider and a fake Meraki dashboard.
type harness struct {
	URL     string
	Store   *auth.Store
	Client  *http.Client
	IDToken string
}

// newHarness wires up a fake IdP (token + JWKS endpoints), a fake
// Meraki dashboard, and the gateway mux on an httptest server.
func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	store, err := kv.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	responseCache := cache.New(store, logger)

	// Fake upstream identity provider.
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idToken := signIDToken(t, key, idp.Claims{
		Sub:   "user-42",
		Email: "user@example.com",
		Name:  "Test User",
		Exp:   time.Now().Add(time.Hour).Unix(),
	})

	upstream := http.NewServeMux()
	upstream.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		if r.PostFormValue("code") != upstreamCode {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "upstream-access-token",
			"id_token":     idToken,
		})
	})
	upstream.HandleFunc("GET /jwks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []tokencodec.JWK{jwkFor(key, upstreamKid)},
		})
	})

	upstreamSrv := httptest.NewServer(upstream)
	t.Cleanup(upstreamSrv.Close)

	// Fake Meraki dashboard.
	dashboard := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Cisco-Meraki-API-Key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/organizations":
			_, _ = w.Write([]byte(`[{"id":"o1","name":"Acme Corp","url":"https://dashboard.meraki.com/o/1"}]`))
		case "/organizations/o1/networks":
			_, _ = w.Write([]byte(`[{"id":"n1","name":"HQ","productTypes":["wireless"]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":["Not found"]}`))
		}
	}))
	t.Cleanup(dashboard.Close)

	merakiClient, err := meraki.NewClient(meraki.Options{
		APIKey:  "e2e-api-key",
		BaseURL: dashboard.URL,
	}, responseCache)
	require.NoError(t, err)

	mcpServer := mcpserver.NewServer(merakiClient)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	// Use NewUnstartedServer so the listener address is known before
	// building handlers that embed the server URL.
	ts := httptest.NewUnstartedServer(nil)
	serverURL := "http://" + ts.Listener.Addr().String()

	idpClient := idp.New(idp.Options{
		ClientID:     "gateway",
		ClientSecret: "gateway-secret",
		AuthorizeURL: upstreamSrv.URL + "/authorize",
		TokenURL:     upstreamSrv.URL + "/token",
		JWKSURL:      upstreamSrv.URL + "/jwks",
	}, responseCache, logger)

	authStore := auth.NewStore(store)

	ts.Config.Handler = server.NewMux(server.MuxConfig{
		Store:      authStore,
		IDP:        idpClient,
		Authorizer: auth.NewAuthorizer(authStore, idpClient, logger, serverURL, cookieSecret),
		Callback:   auth.NewCallbackHandler(authStore, idpClient, logger, serverURL),
		MCPHandler: mcpHandler,
		SSEHandler: sseHandler,
		Logger:     logger,
		ServerURL:  serverURL,
	})
	ts.Start()
	t.Cleanup(ts.Close)

	return &harness{
		URL:     serverURL,
		Store:   authStore,
		Client:  ts.Client(),
		IDToken: idToken,
	}
}

// tokenResponse is the JSON body returned by POST /token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// registerDynamicClient registers a public client via POST /register.
func (h *harness) registerDynamicClient(t *testing.T, redirectURIs []string) string {
	t.Helper()

	b, err := json.Marshal(map[string]any{
		"client_name":   "E2E Test Client",
		"redirect_uris": redirectURIs,
	})
	require.NoError(t, err)

	resp := h.doPostJSON(t, "/register", b)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		ClientID string `json:"client_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.ClientID)

	return result.ClientID
}

// approveResult carries what the consent + upstream redirect leg of
// the flow produced: the approval cookie and the state the callback
// must echo back.
type approveResult struct {
	Cookie        *http.Cookie
	UpstreamState string
}

// approve performs the consent leg: GET /authorize to render the
// dialog, scrape the hidden state field, then POST approval and parse
// the upstream redirect.
func (h *harness) approve(t *testing.T, clientID string) approveResult {
	t.Helper()

	resp := h.doGet(t, h.authorizeURL(clientID))
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	state := extractHiddenState(t, buf.String())

	postResp := h.doPostFormNoRedirect(t, "/authorize", url.Values{"state": {state}})
	defer postResp.Body.Close()

	require.Equal(t, http.StatusFound, postResp.StatusCode)

	loc, err := url.Parse(postResp.Header.Get("Location"))
	require.NoError(t, err)
	require.NotEmpty(t, loc.Query().Get("code_challenge"))

	var cookie *http.Cookie
	for _, c := range postResp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "approval must set the approved-clients cookie")

	return approveResult{
		Cookie:        cookie,
		UpstreamState: loc.Query().Get("state"),
	}
}

// callback simulates the IdP redirecting the user back to the gateway
// and returns the gateway authorization code from the final redirect.
func (h *harness) callback(t *testing.T, upstreamState string) string {
	t.Helper()

	resp := h.doGetNoRedirect(t, h.URL+"/callback?"+url.Values{
		"state": {upstreamState},
		"code":  {upstreamCode},
	}.Encode())
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "e2e-state", loc.Query().Get("state"))

	code := loc.Query().Get("code")
	require.NotEmpty(t, code, "authorization code missing from redirect")

	return code
}

// redeemCode exchanges a gateway authorization code at POST /token.
func (h *harness) redeemCode(t *testing.T, clientID, code string) (*http.Response, tokenResponse) {
	t.Helper()

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {clientID},
		"code_verifier": {pkceVerifier},
	}

	resp := h.doPostForm(t, "/token", form)
	defer resp.Body.Close()

	var tr tokenResponse
	_ = json.NewDecoder(resp.Body).Decode(&tr)

	return resp, tr
}

// authCodeFlow runs the whole brokered flow for a fresh client and
// returns the issued gateway token.
func (h *harness) authCodeFlow(t *testing.T) tokenResponse {
	t.Helper()

	clientID := h.registerDynamicClient(t, []string{redirectURI})
	approved := h.approve(t, clientID)
	code := h.callback(t, approved.UpstreamState)

	resp, tr := h.redeemCode(t, clientID, code)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return tr
}

func (h *harness) authorizeURL(clientID string) string {
	return h.URL + "/authorize?" + url.Values{
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"code_challenge":        {pkceChallenge(pkceVerifier)},
		"code_challenge_method": {"S256"},
		"state":                 {"e2e-state"},
	}.Encode()
}

// mcpSession creates an MCP client session authenticated with the
// given Bearer token.
func (h *harness) mcpSession(t *testing.T, token string) *mcp.ClientSession {
	t.Helper()

	transport := &mcp.StreamableClientTransport{
		Endpoint: h.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{
				token: token,
				base:  h.Client.Transport,
			},
		},
		DisableStandaloneSSE: true,
	}

	client := mcp.NewClient(
		&mcp.Implementation{Name: "e2e-test-client", Version: "test"},
		nil,
	)

	session, err := client.Connect(t.Context(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

// doGet performs a GET request with t.Context().
func (h *harness) doGet(t *testing.T, fullURL string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), "GET", fullURL, nil)
	require.NoError(t, err)

	resp, err := h.Client.Do(req)
	require.NoError(t, err)

	return resp
}

// doGetNoRedirect performs a GET that does not follow redirects.
func (h *harness) doGetNoRedirect(t *testing.T, fullURL string) *http.Response {
	t.Helper()

	noRedirect := *h.Client
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	req, err := http.NewRequestWithContext(t.Context(), "GET", fullURL, nil)
	require.NoError(t, err)

	resp, err := noRedirect.Do(req)
	require.NoError(t, err)

	return resp
}

// doPostForm performs a POST with form-encoded body and t.Context().
func (h *harness) doPostForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(
		t.Context(), "POST", h.URL+path,
		bytes.NewBufferString(form.Encode()),
	)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.Client.Do(req)
	require.NoError(t, err)

	return resp
}

// doPostFormNoRedirect performs a form POST that does not follow redirects.
func (h *harness) doPostFormNoRedirect(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	noRedirect := *h.Client
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	req, err := http.NewRequestWithContext(
		t.Context(), "POST", h.URL+path,
		bytes.NewBufferString(form.Encode()),
	)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := noRedirect.Do(req)
	require.NoError(t, err)

	return resp
}

// doPostJSON performs a POST with JSON body and t.Context().
func (h *harness) doPostJSON(t *testing.T, path string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(
		t.Context(), "POST", h.URL+path,
		bytes.NewReader(body),
	)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	require.NoError(t, err)

	return resp
}

// bearerTransport is an http.RoundTripper that injects a Bearer token
// into every request's Authorization header.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (bt *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+bt.token)

	return bt.base.RoundTrip(req)
}

// pkceChallenge computes the S256 code challenge for a given verifier.
func pkceChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// extractHiddenState scrapes the encoded request from the consent form.
func extractHiddenState(t *testing.T, body string) string {
	t.Helper()

	re := regexp.MustCompile(`name="state" value="([^"]+)"`)
	matches := re.FindStringSubmatch(body)
	require.Len(t, matches, 2, "hidden state field not found in consent HTML")

	return matches[1]
}

func jwkFor(key *rsa.PrivateKey, kid string) tokencodec.JWK {
	return tokencodec.JWK{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   tokencodec.Encode(key.N.Bytes()),
		E:   tokencodec.Encode(big.NewInt(int64(key.E)).Bytes()),
	}
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims idp.Claims) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "RS256", "kid": upstreamKid})
	require.NoError(t, err)

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	signed := tokencodec.Encode(header) + "." + tokencodec.Encode(payload)

	digest := sha256.Sum256([]byte(signed))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)

	return signed + "." + tokencodec.Encode(sig)
}
