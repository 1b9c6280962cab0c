package oauth

import (
	"fmt"
	"net/url"
)

// AuthorizationRequest holds the query parameters of the authorization endpoint.
type AuthorizationRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizationRequestFromQuery reads the standard parameters from q.
func AuthorizationRequestFromQuery(q url.Values) AuthorizationRequest {
	return AuthorizationRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}
}

// ValidateAuthorizationRequest checks the parameters the consent surface
// needs. The client is not looked up here; binding happens at exchange.
func ValidateAuthorizationRequest(req AuthorizationRequest) error {
	switch {
	case req.ClientID == "":
		return errInvalidRequest("client_id is required")
	case req.RedirectURI == "":
		return errInvalidRequest("redirect_uri is required")
	case req.ResponseType != ResponseTypeCode:
		return errInvalidRequest("response_type must be 'code'")
	case req.CodeChallenge == "":
		return errInvalidRequest("code_challenge is required (PKCE is mandatory)")
	case req.CodeChallengeMethod != MethodS256:
		return errInvalidRequest("code_challenge_method must be 'S256'")
	}
	return nil
}

// ConsentRedirect builds the consent surface URL carrying the request
// parameters and oauth=true.
func (req AuthorizationRequest) ConsentRedirect(consentURL string) (string, error) {
	u, err := url.Parse(consentURL)
	if err != nil {
		return "", fmt.Errorf("invalid consent url: %w", err)
	}
	q := u.Query()
	q.Set("oauth", "true")
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("response_type", req.ResponseType)
	q.Set("code_challenge", req.CodeChallenge)
	q.Set("code_challenge_method", req.CodeChallengeMethod)
	if req.Scope != "" {
		q.Set("scope", req.Scope)
	}
	if req.State != "" {
		q.Set("state", req.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
