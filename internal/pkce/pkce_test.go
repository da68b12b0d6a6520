package pkce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVerifier_Length(t *testing.T) {
	// RFC 7636 requires 43-128 characters.
	v := NewVerifier()
	assert.Len(t, v, 43)
}

func TestNewVerifier_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		v := NewVerifier()
		assert.False(t, seen[v], "duplicate verifier generated")
		seen[v] = true
	}
}

func TestChallenge_Deterministic(t *testing.T) {
	v := NewVerifier()
	assert.Equal(t, Challenge(v), Challenge(v))
}

func TestChallenge_DistinctVerifiers(t *testing.T) {
	assert.NotEqual(t, Challenge("verifier-one"), Challenge("verifier-two"))
}

func TestVerifyS256(t *testing.T) {
	v := NewVerifier()
	c := Challenge(v)

	assert.True(t, VerifyS256(v, c))
	assert.False(t, VerifyS256(v+"x", c))
	assert.False(t, VerifyS256(v, c+"x"))
	assert.False(t, VerifyS256("", c))
}
