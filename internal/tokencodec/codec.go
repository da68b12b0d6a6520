// Package tokencodec provides the low-level encoding and signature
// primitives shared by the OAuth broker: unpadded base64url, HMAC-SHA256
// signing, and RSA signature verification against keys imported from a
// JSON Web Key document.
package tokencodec

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// Encode returns the unpadded base64url encoding of b (RFC 4648 §5).
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode decodes a base64url string. Both padded and unpadded inputs
// are accepted: trailing "=" is stripped before decoding, so inputs
// missing 0-3 padding characters all round-trip.
func Decode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decoding base64url: %w", err)
	}

	return b, nil
}

// Sign computes the HMAC-SHA256 signature of payload under secret.
func Sign(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)

	return mac.Sum(nil)
}

// Verify reports whether sig is a valid HMAC-SHA256 signature of
// payload under secret. Comparison is constant-time.
func Verify(secret, sig, payload []byte) bool {
	return hmac.Equal(sig, Sign(secret, payload))
}

// JWK is a single JSON Web Key as published in a JWKS document.
// Only the fields needed for RSA signature verification are modeled.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// PublicKey imports the JWK as an *rsa.PublicKey. Non-RSA keys and
// malformed modulus/exponent values are rejected.
func (k JWK) PublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}

	nb, err := Decode(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}

	eb, err := Decode(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eb)
	if !e.IsInt64() || e.Int64() <= 0 {
		return nil, fmt.Errorf("invalid public exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(e.Int64()),
	}, nil
}

// VerifyRSA reports whether sig is a valid RSASSA-PKCS1-v1_5/SHA-256
// signature of signed under pub.
func VerifyRSA(pub *rsa.PublicKey, signed, sig []byte) bool {
	digest := sha256.Sum256(signed)

	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
