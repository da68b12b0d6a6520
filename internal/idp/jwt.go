package idp

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/macharpe/meraki-mcp/internal/cache"
	apperrors "github.com/macharpe/meraki-mcp/internal/errors"
	"github.com/macharpe/meraki-mcp/internal/tokencodec"
)

// Claims are the ID token claims the gateway cares about.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
}

type jwtHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

type jwksDocument struct {
	Keys []tokencodec.JWK `json:"keys"`
}

// VerifyIDToken checks an RS256 ID token against the provider's JWKS:
// structure, signature, then expiry. The key set is cached; an unknown
// kid is reported distinctly from a bad signature so operators can
// tell key rollover from tampering.
func (c *Client) VerifyIDToken(ctx context.Context, token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, apperrors.ErrMalformedToken
	}

	headerJSON, err := tokencodec.Decode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}

	var header jwtHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}

	key, err := c.signingKey(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	sig, err := tokencodec.Decode(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}

	signed := []byte(parts[0] + "." + parts[1])
	if !tokencodec.VerifyRSA(key, signed, sig) {
		return nil, apperrors.ErrBadSignature
	}

	payloadJSON, err := tokencodec.Decode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedToken, err)
	}

	if claims.Exp > 0 && c.now().Unix() >= claims.Exp {
		return nil, apperrors.ErrTokenExpired
	}

	return &claims, nil
}

// signingKey looks up the RSA public key for kid in the cached JWKS.
func (c *Client) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	doc, err := cache.Fetch(c.cache, cache.JWKSKey(c.jwksURL), c.jwksTTL, func() (jwksDocument, error) {
		return c.fetchJWKS(ctx)
	})
	if err != nil {
		return nil, err
	}

	for _, jwk := range doc.Keys {
		if jwk.Kid == kid {
			pub, err := jwk.PublicKey()
			if err != nil {
				return nil, fmt.Errorf("importing jwks key %q: %w", kid, err)
			}

			return pub, nil
		}
	}

	return nil, apperrors.ErrKeyNotFound
}

func (c *Client) fetchJWKS(ctx context.Context) (jwksDocument, error) {
	var doc jwksDocument

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return doc, fmt.Errorf("building jwks request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return doc, fmt.Errorf("%w: jwks endpoint unreachable: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("%w: fetching jwks (%d)", apperrors.ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return doc, fmt.Errorf("%w: decoding jwks: %v", apperrors.ErrUpstream, err)
	}

	return doc, nil
}
