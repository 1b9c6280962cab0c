package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// oauthClientRow is the DB-level representation of a registered client.
type oauthClientRow struct {
	ClientID                string    `json:"client_id"`
	ClientName              string    `json:"client_name"`
	ClientURI               string    `json:"client_uri"`
	RedirectURIs            []string  `json:"redirect_uris"`
	GrantTypes              []string  `json:"grant_types"`
	ResponseTypes           []string  `json:"response_types"`
	TokenEndpointAuthMethod string    `json:"token_endpoint_auth_method"`
	Scope                   string    `json:"scope"`
	IssuedAt                time.Time `json:"issued_at"`
}

// oauthCodeRow is the DB-level representation of an authorization code.
type oauthCodeRow struct {
	Code                string    `json:"code"`
	UserID              string    `json:"user_id"`
	AgentID             string    `json:"agent_id"`
	BearerToken         string    `json:"bearer_token"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	Used                bool      `json:"used"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

func (r oauthCodeRow) toModel() *models.OAuthCode {
	return &models.OAuthCode{
		Code:                r.Code,
		UserID:              r.UserID,
		AgentID:             r.AgentID,
		BearerToken:         r.BearerToken,
		ClientID:            r.ClientID,
		RedirectURI:         r.RedirectURI,
		Scope:               r.Scope,
		CodeChallenge:       r.CodeChallenge,
		CodeChallengeMethod: r.CodeChallengeMethod,
		Used:                r.Used,
		CreatedAt:           r.CreatedAt,
		ExpiresAt:           r.ExpiresAt,
	}
}

const codeFields = "code, user_id, agent_id, bearer_token, client_id, redirect_uri, scope, code_challenge, code_challenge_method, used, created_at, expires_at"

// OAuthStore implements interfaces.OAuthStore using SurrealDB.
type OAuthStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewOAuthStore creates a new OAuthStore.
func NewOAuthStore(db *surrealdb.DB, logger *common.Logger) *OAuthStore {
	return &OAuthStore{db: db, logger: logger}
}

// --- Clients ---

func (s *OAuthStore) SaveClient(ctx context.Context, client *models.OAuthClient) error {
	sql := `UPSERT $rid SET
		client_id = $client_id, client_name = $client_name, client_uri = $client_uri,
		redirect_uris = $redirect_uris, grant_types = $grant_types,
		response_types = $response_types, token_endpoint_auth_method = $auth_method,
		scope = $scope, issued_at = $issued_at`
	vars := map[string]any{
		"rid":            surrealmodels.NewRecordID("oauth_client", client.ClientID),
		"client_id":      client.ClientID,
		"client_name":    client.ClientName,
		"client_uri":     client.ClientURI,
		"redirect_uris":  client.RedirectURIs,
		"grant_types":    client.GrantTypes,
		"response_types": client.ResponseTypes,
		"auth_method":    client.TokenEndpointAuthMethod,
		"scope":          client.Scope,
		"issued_at":      client.IssuedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save oauth client: %w", err)
	}
	return nil
}

func (s *OAuthStore) GetClient(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	sql := "SELECT client_id, client_name, client_uri, redirect_uris, grant_types, response_types, token_endpoint_auth_method, scope, issued_at FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("oauth_client", clientID),
	}
	results, err := surrealdb.Query[[]oauthClientRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("oauth client %s: %w", clientID, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get oauth client: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("oauth client %s: %w", clientID, interfaces.ErrNotFound)
	}
	row := (*results)[0].Result[0]
	return &models.OAuthClient{
		ClientID:                row.ClientID,
		ClientName:              row.ClientName,
		ClientURI:               row.ClientURI,
		RedirectURIs:            row.RedirectURIs,
		GrantTypes:              row.GrantTypes,
		ResponseTypes:           row.ResponseTypes,
		TokenEndpointAuthMethod: row.TokenEndpointAuthMethod,
		Scope:                   row.Scope,
		IssuedAt:                row.IssuedAt,
	}, nil
}

// --- Authorization codes ---

func (s *OAuthStore) SaveCode(ctx context.Context, code *models.OAuthCode) error {
	sql := `UPSERT $rid SET
		code = $code, user_id = $user_id, agent_id = $agent_id,
		bearer_token = $bearer_token, client_id = $client_id,
		redirect_uri = $redirect_uri, scope = $scope,
		code_challenge = $code_challenge, code_challenge_method = $code_challenge_method,
		used = $used, created_at = $created_at, expires_at = $expires_at`
	vars := map[string]any{
		"rid":                   surrealmodels.NewRecordID("oauth_code", code.Code),
		"code":                  code.Code,
		"user_id":               code.UserID,
		"agent_id":              code.AgentID,
		"bearer_token":          code.BearerToken,
		"client_id":             code.ClientID,
		"redirect_uri":          code.RedirectURI,
		"scope":                 code.Scope,
		"code_challenge":        code.CodeChallenge,
		"code_challenge_method": code.CodeChallengeMethod,
		"used":                  code.Used,
		"created_at":            code.CreatedAt,
		"expires_at":            code.ExpiresAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save oauth code: %w", err)
	}
	return nil
}

func (s *OAuthStore) GetCode(ctx context.Context, code string) (*models.OAuthCode, error) {
	sql := "SELECT " + codeFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("oauth_code", code),
	}
	results, err := surrealdb.Query[[]oauthCodeRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("oauth code: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get oauth code: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("oauth code: %w", interfaces.ErrNotFound)
	}
	return (*results)[0].Result[0].toModel(), nil
}

// MarkCodeUsed is a conditional update: the WHERE clause makes the flip
// happen for exactly one caller, and only that caller gets a row back.
func (s *OAuthStore) MarkCodeUsed(ctx context.Context, code string) (bool, error) {
	sql := "UPDATE $rid SET used = true WHERE used = false RETURN AFTER"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("oauth_code", code),
	}
	results, err := surrealdb.Query[[]oauthCodeRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark oauth code used: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return false, nil
	}
	return len((*results)[0].Result) == 1, nil
}

func (s *OAuthStore) DeleteCode(ctx context.Context, code string) error {
	rid := surrealmodels.NewRecordID("oauth_code", code)
	_, err := surrealdb.Delete[oauthCodeRow](ctx, s.db, rid)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete oauth code: %w", err)
	}
	return nil
}

func (s *OAuthStore) PurgeExpiredCodes(ctx context.Context, now time.Time) (int, error) {
	sql := "DELETE oauth_code WHERE expires_at < $now RETURN BEFORE"
	vars := map[string]any{"now": now}
	results, err := surrealdb.Query[[]oauthCodeRow](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired codes: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// Compile-time check
var _ interfaces.OAuthStore = (*OAuthStore)(nil)
