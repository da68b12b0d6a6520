package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/macharpe/meraki-mcp/internal/errors"
	"github.com/macharpe/meraki-mcp/internal/models"
	"github.com/macharpe/meraki-mcp/internal/pkce"
	"github.com/macharpe/meraki-mcp/internal/tokencodec"
)

// ParseAuthRequest extracts and validates the OAuth authorization
// parameters from an /authorize query.
func ParseAuthRequest(r *http.Request) (*models.AuthRequest, error) {
	q := r.URL.Query()

	req := &models.AuthRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		ResponseType:        q.Get("response_type"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}

	if req.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", apperrors.ErrInvalidClient)
	}

	// An omitted response_type means the authorization code flow.
	if req.ResponseType == "" {
		req.ResponseType = "code"
	}

	if req.ResponseType != "code" {
		return nil, fmt.Errorf("%w: response_type must be \"code\"", apperrors.ErrInvalidRequest)
	}

	if req.CodeChallengeMethod != "" && req.CodeChallengeMethod != pkce.Method {
		return nil, fmt.Errorf("%w: only S256 code_challenge_method is supported", apperrors.ErrInvalidRequest)
	}

	if req.Scope == "" {
		req.Scope = DefaultScope
	}

	return req, nil
}

// EncodeState serializes an AuthRequest for the upstream state
// parameter. The encoded form is also the storage key for the pending
// PKCE verifier.
func EncodeState(req *models.AuthRequest) string {
	data, _ := json.Marshal(req)
	return tokencodec.Encode(data)
}

// DecodeState reverses EncodeState.
func DecodeState(state string) (*models.AuthRequest, error) {
	data, err := tokencodec.Decode(state)
	if err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}

	var req models.AuthRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}

	return &req, nil
}
