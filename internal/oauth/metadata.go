package oauth

// Endpoint paths advertised in the metadata document.
const (
	PathMetadata     = "/.well-known/oauth-authorization-server"
	PathAuthorize    = "/oauth/authorize"
	PathToken        = "/oauth/token"
	PathRegister     = "/oauth/register"
	PathRevoke       = "/oauth/revoke"
	PathCallback     = "/oauth/callback"
	PathAuthorizeAlt = "/authorize"
	PathTokenAlt     = "/token"
	PathRegisterAlt  = "/register"
	PathRevokeAlt    = "/revoke"
)

// ServerMetadata is the authorization server metadata document (RFC 8414).
type ServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// Metadata returns the metadata document for issuer (no trailing slash).
func Metadata(issuer string) *ServerMetadata {
	return &ServerMetadata{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + PathAuthorize,
		TokenEndpoint:                     issuer + PathToken,
		RegistrationEndpoint:              issuer + PathRegister,
		RevocationEndpoint:                issuer + PathRevoke,
		ScopesSupported:                   []string{"drugs:read", "drugs:write"},
		ResponseTypesSupported:            []string{ResponseTypeCode},
		GrantTypesSupported:               []string{GrantTypeAuthorizationCode},
		CodeChallengeMethodsSupported:     []string{MethodS256},
		TokenEndpointAuthMethodsSupported: []string{AuthMethodNone},
	}
}
