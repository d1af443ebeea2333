package auth

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/redhat-data-and-ai/smokecheck/internal/config"
	"github.com/redhat-data-and-ai/smokecheck/internal/errors"
)

// DatabricksResourceID is the application ID of the Azure Databricks resource,
// identical in every Azure tenant. Token requests scope to it so the issued
// token is accepted by the workspace.
const DatabricksResourceID = "2ff814a6-3304-4ab8-85cb-cd0e6f879c1d"

// Strategy produces the bearer tokens a workspace session authenticates with
type Strategy interface {
	// Name identifies the strategy in logs
	Name() string
	// TokenSource returns the token source backing the session. Token
	// acquisition uses the HTTP client carried by ctx when one is set.
	TokenSource(ctx context.Context) oauth2.TokenSource
}

// Compile-time interface checks
var (
	_ Strategy = (*StaticToken)(nil)
	_ Strategy = (*ClientSecretOAuth)(nil)
)

// StaticToken authenticates with a pre-issued workspace token
type StaticToken struct {
	token string
}

// NewStaticToken creates a static token strategy
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

// Name identifies the strategy in logs
func (s *StaticToken) Name() string {
	return "static_token"
}

// TokenSource returns a source that always yields the configured token
func (s *StaticToken) TokenSource(_ context.Context) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.token})
}

// ClientSecretOAuth authenticates through the Entra client-credentials flow
type ClientSecretOAuth struct {
	clientID      string
	tenantID      string
	clientSecret  string
	authorityHost string
}

// NewClientSecretOAuth creates a client-credentials strategy against the
// given authority
func NewClientSecretOAuth(clientID, tenantID, clientSecret, authorityHost string) *ClientSecretOAuth {
	return &ClientSecretOAuth{
		clientID:      clientID,
		tenantID:      tenantID,
		clientSecret:  clientSecret,
		authorityHost: authorityHost,
	}
}

// Name identifies the strategy in logs
func (s *ClientSecretOAuth) Name() string {
	return "oauth_client_credentials"
}

// TokenSource returns a source that exchanges the client secret for
// workspace tokens, refreshing them as they expire
func (s *ClientSecretOAuth) TokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		TokenURL:     s.TokenURL(),
		Scopes:       []string{DatabricksResourceID + "/.default"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cfg.TokenSource(ctx)
}

// TokenURL returns the v2.0 token endpoint for the configured tenant
func (s *ClientSecretOAuth) TokenURL() string {
	return strings.TrimRight(s.authorityHost, "/") + "/" + s.tenantID + "/oauth2/v2.0/token"
}

// FromConfig selects the strategy the configuration calls for
func FromConfig(cfg *config.Config) (Strategy, error) {
	switch cfg.AuthMode() {
	case config.AuthModeStaticToken:
		return NewStaticToken(cfg.Auth.Token), nil
	case config.AuthModeOAuth:
		return NewClientSecretOAuth(
			cfg.Auth.ClientID,
			cfg.Auth.TenantID,
			cfg.Auth.ClientSecret,
			cfg.Auth.AuthorityHost,
		), nil
	default:
		return nil, errors.NewError(errors.ErrAuthFailed, "no authentication strategy configured")
	}
}
