package auth

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/macharpe/meraki-mcp/internal/tokencodec"
)

// CookieName holds the signed list of client IDs the user has already
// approved, so repeat authorizations skip the consent dialog.
const CookieName = "meraki-mcp-approved-clients"

const cookieMaxAge = 365 * 24 * 60 * 60

// approvedClients parses and verifies the approval cookie. The value
// is "{hex signature}.{base64url payload}" where the payload is a JSON
// array of client IDs signed with HMAC-SHA256. Any verification
// failure yields nil; a forged or damaged cookie just means the user
// approves again.
func approvedClients(r *http.Request, secret string) []string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	parts := strings.Split(cookie.Value, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil
	}

	sig, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil
	}

	payload, err := tokencodec.Decode(parts[1])
	if err != nil {
		return nil
	}

	if !tokencodec.Verify([]byte(secret), sig, payload) {
		return nil
	}

	var clients []string
	if err := json.Unmarshal(payload, &clients); err != nil {
		return nil
	}

	return clients
}

// ClientApproved reports whether the approval cookie vouches for the
// client.
func ClientApproved(r *http.Request, clientID, secret string) bool {
	if clientID == "" {
		return false
	}

	for _, approved := range approvedClients(r, secret) {
		if approved == clientID {
			return true
		}
	}

	return false
}

// approvalCookie returns a fresh approval cookie carrying the existing
// approved set plus clientID.
func approvalCookie(r *http.Request, clientID, secret string) *http.Cookie {
	clients := approvedClients(r, secret)

	seen := false
	for _, c := range clients {
		if c == clientID {
			seen = true
			break
		}
	}

	if !seen {
		clients = append(clients, clientID)
	}

	payload, _ := json.Marshal(clients)
	sig := tokencodec.Sign([]byte(secret), payload)

	return &http.Cookie{
		Name:     CookieName,
		Value:    hex.EncodeToString(sig) + "." + tokencodec.Encode(payload),
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
