// Package models defines types shared across internal packages.
package models

import "time"

// AuthRequest captures the parameters of an inbound /authorize request.
// It is serialized to base64url JSON and round-trips as the opaque
// state parameter through the upstream redirect and the approval form,
// so the JSON field names are part of the wire contract.
type AuthRequest struct {
	ClientID            string `json:"clientId"`
	RedirectURI         string `json:"redirectUri"`
	Scope               string `json:"scope,omitempty"`
	ResponseType        string `json:"responseType,omitempty"`
	State               string `json:"state,omitempty"`
	CodeChallenge       string `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string `json:"codeChallengeMethod,omitempty"`
}

// OAuthClient represents a registered OAuth client. SecretHash is the
// bcrypt hash of the client secret issued at registration; the
// plaintext secret is returned once and never stored.
type OAuthClient struct {
	ClientID     string    `json:"client_id"`
	ClientName   string    `json:"client_name,omitempty"`
	ClientURI    string    `json:"client_uri,omitempty"`
	RedirectURIs []string  `json:"redirect_uris,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	SecretHash   []byte    `json:"secret_hash,omitempty"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
}

// UserProps carries the identity established during the upstream
// authorization. It is bound to the grant and made available to tool
// handlers through the request context.
type UserProps struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
}

// Grant is the record behind an authorization code: the client it was
// issued to, the authenticated user, and the scope granted.
type Grant struct {
	ClientID      string    `json:"client_id"`
	UserID        string    `json:"user_id"`
	Scope         string    `json:"scope"`
	RedirectURI   string    `json:"redirect_uri,omitempty"`
	CodeChallenge string    `json:"code_challenge,omitempty"`
	Props         UserProps `json:"props"`
	Label         string    `json:"label,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// OAuthToken represents an issued gateway access token.
type OAuthToken struct {
	UserID    string    `json:"user_id"`
	ClientID  string    `json:"client_id"`
	Scope     string    `json:"scope,omitempty"`
	Props     UserProps `json:"props"`
	ExpiresAt time.Time `json:"expires_at"`
}
