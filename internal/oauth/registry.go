package oauth

import (
	"context"
	"slices"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/credentials"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

const (
	GrantTypeAuthorizationCode = "authorization_code"
	ResponseTypeCode           = "code"
	AuthMethodNone             = "none"

	// DefaultScope is granted when a client or authorization does not ask for one.
	DefaultScope = "drugs:read drugs:write"
)

var supportedGrantTypes = []string{GrantTypeAuthorizationCode}

// RegistrationRequest is the client metadata accepted at the registration
// endpoint (RFC 7591 section 2). Unknown fields are ignored.
type RegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	ClientURI               string   `json:"client_uri"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	Scope                   string   `json:"scope"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// RegistrationResponse is returned with 201 Created.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
}

// Registry performs dynamic client registration.
type Registry struct {
	store  interfaces.OAuthStore
	creds  *credentials.Generator
	logger *common.Logger

	Now func() time.Time
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store interfaces.OAuthStore, creds *credentials.Generator, logger *common.Logger) *Registry {
	return &Registry{store: store, creds: creds, logger: logger, Now: time.Now}
}

// Register validates the metadata, filters grant types down to the
// supported set and persists a new public client.
func (r *Registry) Register(ctx context.Context, req *RegistrationRequest) (*RegistrationResponse, error) {
	if req == nil {
		return nil, errInvalidRequest("Invalid registration request")
	}

	requested := req.GrantTypes
	if requested == nil {
		requested = []string{GrantTypeAuthorizationCode}
	}
	grantTypes := make([]string, 0, len(requested))
	for _, gt := range requested {
		if slices.Contains(supportedGrantTypes, gt) && !slices.Contains(grantTypes, gt) {
			grantTypes = append(grantTypes, gt)
		}
	}
	if len(grantTypes) == 0 {
		return nil, errInvalidClientMetadata("No supported grant types requested. Supported: authorization_code")
	}

	responseTypes := req.ResponseTypes
	if responseTypes == nil {
		responseTypes = []string{ResponseTypeCode}
	}
	if !slices.Contains(responseTypes, ResponseTypeCode) {
		return nil, errInvalidClientMetadata(`Only response_type "code" is supported`)
	}

	clientID, err := r.creds.ClientID()
	if err != nil {
		return nil, errServer("Internal server error during client registration", err)
	}

	scope := req.Scope
	if scope == "" {
		scope = DefaultScope
	}
	redirectURIs := req.RedirectURIs
	if redirectURIs == nil {
		redirectURIs = []string{}
	}

	// client_id_issued_at is whole seconds on the wire
	issuedAt := r.Now().Truncate(time.Second)

	client := &models.OAuthClient{
		ClientID:                clientID,
		ClientName:              req.ClientName,
		ClientURI:               req.ClientURI,
		RedirectURIs:            redirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: AuthMethodNone,
		Scope:                   scope,
		IssuedAt:                issuedAt,
	}
	if err := r.store.SaveClient(ctx, client); err != nil {
		return nil, errServer("Internal server error during client registration", err)
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("client_name", req.ClientName).
		Msg("OAuth client registered")

	return &RegistrationResponse{
		ClientID:                clientID,
		ClientName:              req.ClientName,
		ClientURI:               req.ClientURI,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: AuthMethodNone,
		Scope:                   scope,
		ClientIDIssuedAt:        issuedAt.Unix(),
	}, nil
}
