package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
)

// TokenExpiresIn is the advertised access token lifetime in seconds (one
// year). Actual validity is governed by the agent TTL and revocation.
const TokenExpiresIn = 31536000

// TokenRequest carries the token endpoint parameters (form or JSON).
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	CodeVerifier string `json:"code_verifier"`
}

// TokenResponse is the successful token endpoint body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Exchanger redeems authorization codes for the bearer token bound at
// completion time.
type Exchanger struct {
	codes  interfaces.OAuthStore
	logger *common.Logger

	Now func() time.Time
}

// NewExchanger creates an Exchanger backed by codes.
func NewExchanger(codes interfaces.OAuthStore, logger *common.Logger) *Exchanger {
	return &Exchanger{codes: codes, logger: logger, Now: time.Now}
}

// Exchange validates the code and verifier. A code can be redeemed once;
// presenting a used or expired code destroys it.
func (e *Exchanger) Exchange(ctx context.Context, req *TokenRequest) (*TokenResponse, error) {
	if req.GrantType != GrantTypeAuthorizationCode {
		return nil, errUnsupportedGrantType("Only authorization_code grant type is supported")
	}
	if req.Code == "" || req.RedirectURI == "" || req.ClientID == "" || req.CodeVerifier == "" {
		return nil, errInvalidRequest("Missing required parameters")
	}

	code, err := e.codes.GetCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, errInvalidGrant("Invalid or expired authorization code")
		}
		return nil, errServer("Internal server error during token exchange", err)
	}

	if code.Used {
		e.destroy(ctx, req.Code, "replayed")
		return nil, errInvalidGrant("Authorization code has already been used")
	}
	if code.Expired(e.Now()) {
		e.destroy(ctx, req.Code, "expired")
		return nil, errInvalidGrant("Authorization code has expired")
	}
	if code.ClientID != req.ClientID {
		return nil, errInvalidGrant("Client ID mismatch")
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, errInvalidGrant("Redirect URI mismatch")
	}
	if !VerifyPKCE(req.CodeVerifier, code.CodeChallenge) {
		return nil, errInvalidGrant("PKCE verification failed")
	}

	won, err := e.codes.MarkCodeUsed(ctx, req.Code)
	if err != nil {
		return nil, errServer("Internal server error during token exchange", err)
	}
	if !won {
		// A concurrent exchange redeemed it between our read and this write.
		e.destroy(ctx, req.Code, "raced")
		return nil, errInvalidGrant("Authorization code has already been used")
	}

	e.logger.Info().
		Str("client_id", code.ClientID).
		Str("agent_id", code.AgentID).
		Msg("Authorization code exchanged")

	scope := code.Scope
	if scope == "" {
		scope = DefaultScope
	}
	return &TokenResponse{
		AccessToken: code.BearerToken,
		TokenType:   "Bearer",
		ExpiresIn:   TokenExpiresIn,
		Scope:       scope,
	}, nil
}

func (e *Exchanger) destroy(ctx context.Context, code, reason string) {
	if err := e.codes.DeleteCode(ctx, code); err != nil {
		e.logger.Warn().Err(err).Str("reason", reason).Msg("Failed to delete authorization code")
		return
	}
	e.logger.Warn().Str("reason", reason).Msg("Authorization code destroyed")
}

// PurgeExpiredCodes removes codes that expired before now and were never
// presented again.
func (e *Exchanger) PurgeExpiredCodes(ctx context.Context) (int, error) {
	return e.codes.PurgeExpiredCodes(ctx, e.Now())
}
