// Package pkce implements the Proof Key for Code Exchange recipe
// (RFC 7636) with the S256 challenge method.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/macharpe/meraki-mcp/internal/tokencodec"
)

// Method is the only supported code_challenge_method.
const Method = "S256"

// verifierBytes is the entropy of a generated verifier. 32 bytes
// base64url-encode to 43 characters, the RFC 7636 minimum length.
const verifierBytes = 32

// NewVerifier generates a cryptographically random code verifier.
func NewVerifier() string {
	b := make([]byte, verifierBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	return tokencodec.Encode(b)
}

// Challenge derives the S256 code challenge for a verifier.
func Challenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))

	return tokencodec.Encode(h[:])
}

// VerifyS256 reports whether verifier hashes to challenge.
func VerifyS256(verifier, challenge string) bool {
	derived := Challenge(verifier)

	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}
