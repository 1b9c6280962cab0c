package models

import "time"

// OAuthClient represents a dynamically registered public client (RFC 7591).
// Clients carry no secret; PKCE replaces client authentication.
type OAuthClient struct {
	ClientID                string    `json:"client_id"`
	ClientName              string    `json:"client_name,omitempty"`
	ClientURI               string    `json:"client_uri,omitempty"`
	RedirectURIs            []string  `json:"redirect_uris"`
	GrantTypes              []string  `json:"grant_types"`
	ResponseTypes           []string  `json:"response_types"`
	TokenEndpointAuthMethod string    `json:"token_endpoint_auth_method"` // always "none"
	Scope                   string    `json:"scope"`
	IssuedAt                time.Time `json:"client_id_issued_at"`
}

// OAuthCode represents an authorization code issued after consent.
// The bearer token it will be exchanged for is minted up front and carried here.
type OAuthCode struct {
	Code                string    `json:"code"`
	UserID              string    `json:"user_id"`
	AgentID             string    `json:"agent_id"`
	BearerToken         string    `json:"-"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"` // always "S256"
	Used                bool      `json:"used"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (c *OAuthCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
