// Package idp is the gateway's client side of the upstream identity
// provider: building authorize URLs, exchanging authorization codes for
// tokens, and verifying the ID tokens the provider signs.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/macharpe/meraki-mcp/internal/cache"
	apperrors "github.com/macharpe/meraki-mcp/internal/errors"
	"github.com/macharpe/meraki-mcp/internal/pkce"
)

// UpstreamScope is the scope requested from the identity provider.
// The gateway only needs an identity, not delegated API access.
const UpstreamScope = "openid email profile"

const requestTimeout = 30 * time.Second

// Tokens is the successful result of an authorization-code exchange.
type Tokens struct {
	AccessToken string
	IDToken     string
}

// Client talks to one upstream identity provider.
type Client struct {
	clientID     string
	clientSecret string
	authorizeURL string
	tokenURL     string
	jwksURL      string
	jwksTTL      time.Duration

	httpClient *http.Client
	cache      *cache.Cache
	logger     *slog.Logger

	// now is stubbed in tests to pin token expiry checks.
	now func() time.Time
}

// Options configures a Client.
type Options struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	JWKSURL      string
	JWKSTTL      time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// New creates an identity provider client.
func New(opts Options, c *cache.Cache, logger *slog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	jwksTTL := opts.JWKSTTL
	if jwksTTL <= 0 {
		jwksTTL = cache.TTLJWKS
	}

	return &Client{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		authorizeURL: opts.AuthorizeURL,
		tokenURL:     opts.TokenURL,
		jwksURL:      opts.JWKSURL,
		jwksTTL:      jwksTTL,
		httpClient:   httpClient,
		cache:        c,
		logger:       logger,
		now:          time.Now,
	}
}

// AuthorizeURL builds the upstream authorization URL for a PKCE
// authorization-code flow. state is the encoded AuthRequest that will
// round-trip back through /callback.
func (c *Client) AuthorizeURL(redirectURI, state, codeChallenge string) string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", UpstreamScope)
	params.Set("response_type", "code")
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", pkce.Method)

	if state != "" {
		params.Set("state", state)
	}

	sep := "?"
	if strings.Contains(c.authorizeURL, "?") {
		sep = "&"
	}

	return c.authorizeURL + sep + params.Encode()
}

// ExchangeCode redeems an upstream authorization code together with
// the PKCE verifier. The upstream response body is never surfaced to
// callers; failures wrap errors.ErrUpstream with an opaque message.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, verifier string) (*Tokens, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token endpoint unreachable: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Log the body for operators, but keep it out of the error.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("upstream token exchange failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)

		return nil, fmt.Errorf("%w: failed to exchange code (%d)", apperrors.ErrUpstream, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		IDToken     string `json:"id_token"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %v", apperrors.ErrUpstream, err)
	}

	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", apperrors.ErrUpstream)
	}

	if body.IDToken == "" {
		return nil, fmt.Errorf("%w: missing id token", apperrors.ErrUpstream)
	}

	return &Tokens{AccessToken: body.AccessToken, IDToken: body.IDToken}, nil
}
