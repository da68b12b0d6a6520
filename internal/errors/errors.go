// Package errors defines sentinel errors shared across internal packages.
package errors

import "errors"

// Token verification errors. ErrKeyNotFound and ErrBadSignature are
// deliberately distinct so callers can tell an unknown signing key
// apart from a forged signature.
var (
	ErrMalformedToken = errors.New("token must have 3 parts")
	ErrKeyNotFound    = errors.New("signing key not found")
	ErrBadSignature   = errors.New("failed to verify token")
	ErrTokenExpired   = errors.New("expired token")
	ErrInvalidToken   = errors.New("invalid or expired token")
)

// Authorization flow errors.
var (
	ErrInvalidRequest  = errors.New("invalid authorization request")
	ErrInvalidClient   = errors.New("unknown or invalid client")
	ErrInvalidGrant    = errors.New("invalid or expired authorization code")
	ErrMissingVerifier = errors.New("missing code verifier")
)

// Upstream/transport errors.
var (
	ErrUpstream    = errors.New("upstream request failed")
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)
