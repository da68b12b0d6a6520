// Package auth implements the OAuth 2.1 authorization layer of the
// gateway. The gateway is the authorization server for MCP clients and
// brokers the actual sign-in to an upstream identity provider with
// PKCE. All state lives in the persistent key-value store, so issued
// tokens survive restarts.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/macharpe/meraki-mcp/internal/kv"
	"github.com/macharpe/meraki-mcp/internal/models"
)

// DefaultScope is granted when a client requests no explicit scope.
const DefaultScope = "meraki:read"

const (
	// codeExpiry bounds both the stored PKCE verifier and the issued
	// authorization code.
	codeExpiry = 10 * time.Minute

	tokenExpiry = 24 * time.Hour

	// maxClients caps dynamic registrations so unauthenticated
	// /register requests cannot grow the store without bound.
	maxClients = 100

	registrationWindow = time.Minute
	registrationPerMin = 10
)

// Store key prefixes.
const (
	keyClient   = "client:"
	keyVerifier = "client_verifier:"
	keyCode     = "auth_code:"
	keyToken    = "access_token:"
)

// Store persists OAuth clients, pending PKCE verifiers, authorization
// grants, and issued access tokens.
type Store struct {
	kv kv.Store

	// The rate-limit window is advisory and kept in memory; the
	// client count is seeded from the persisted registrations so
	// maxClients holds across restarts.
	mu                sync.Mutex
	clientCount       int
	registrationTimes []time.Time
}

// NewStore wraps a key-value store with the OAuth state layout.
func NewStore(store kv.Store) *Store {
	return &Store{
		kv:          store,
		clientCount: store.CountPrefix(keyClient),
	}
}

// --- clients ---

// SaveClient persists a registered client. Returns false when the
// registration cap has been reached.
func (s *Store) SaveClient(client *models.OAuthClient) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clientCount >= maxClients {
		return false, nil
	}

	data, err := json.Marshal(client)
	if err != nil {
		return false, fmt.Errorf("encoding client: %w", err)
	}

	// Client registrations do not expire.
	if err := s.kv.Set(keyClient+client.ClientID, data, 0); err != nil {
		return false, fmt.Errorf("saving client: %w", err)
	}

	s.clientCount++

	return true, nil
}

// GetClient returns the registered client, or nil when unknown.
func (s *Store) GetClient(clientID string) *models.OAuthClient {
	data, ok := s.kv.Get(keyClient + clientID)
	if !ok {
		return nil
	}

	var client models.OAuthClient
	if err := json.Unmarshal(data, &client); err != nil {
		return nil
	}

	return &client
}

// --- PKCE verifiers ---

// SaveVerifier stores the upstream PKCE verifier keyed by the encoded
// state that will round-trip through the identity provider.
func (s *Store) SaveVerifier(state, verifier string) error {
	return s.kv.Set(keyVerifier+state, []byte(verifier), codeExpiry)
}

// ConsumeVerifier retrieves and deletes the verifier for a state.
// Returns "" when absent or expired.
func (s *Store) ConsumeVerifier(state string) string {
	data, ok := s.kv.Consume(keyVerifier + state)
	if !ok {
		return ""
	}

	return string(data)
}

// --- authorization grants ---

// SaveGrant stores an authorization grant under its code.
func (s *Store) SaveGrant(code string, grant *models.Grant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("encoding grant: %w", err)
	}

	return s.kv.Set(keyCode+code, data, codeExpiry)
}

// ConsumeGrant retrieves and deletes a grant in one step, so a code
// can be redeemed at most once even under concurrent requests.
// Returns nil when the code is unknown, expired, or already used.
func (s *Store) ConsumeGrant(code string) *models.Grant {
	data, ok := s.kv.Consume(keyCode + code)
	if !ok {
		return nil
	}

	var grant models.Grant
	if err := json.Unmarshal(data, &grant); err != nil {
		return nil
	}

	return &grant
}

// --- access tokens ---

// SaveToken stores an issued access token.
func (s *Store) SaveToken(token string, info *models.OAuthToken) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	return s.kv.Set(keyToken+token, data, tokenExpiry)
}

// ValidateToken returns the token record, or nil when the token is
// unknown or expired.
func (s *Store) ValidateToken(token string) *models.OAuthToken {
	data, ok := s.kv.Get(keyToken + token)
	if !ok {
		return nil
	}

	var info models.OAuthToken
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}

	return &info
}

// --- registration rate limiting ---

// RegistrationAllowed enforces a sliding one-minute window over
// unauthenticated registration requests.
func (s *Store) RegistrationAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-registrationWindow)

	valid := s.registrationTimes[:0]
	for _, t := range s.registrationTimes {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	s.registrationTimes = valid

	if len(s.registrationTimes) >= registrationPerMin {
		return false
	}

	s.registrationTimes = append(s.registrationTimes, now)

	return true
}

// RandomHex generates a cryptographically random hex string of the
// given byte length.
func RandomHex(byteLen int) string {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	return hex.EncodeToString(b)
}
