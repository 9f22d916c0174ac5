package sso

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/platinummonkey/idgate/pkg/identity"
)

// OIDCProvider handles one OpenID Connect provider: discovery, the
// authorization code flow, and mapping the verified ID token into an
// AuthEvent plus an initial UserDraft.
type OIDCProvider struct {
	config       *ProviderConfig
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewOIDCProvider discovers the provider's endpoints and prepares the
// authorization code flow.
func NewOIDCProvider(ctx context.Context, config *ProviderConfig) (*OIDCProvider, error) {
	if config.IssuerURL == "" {
		return nil, fmt.Errorf("provider %q: issuer URL is required", config.Name)
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider %q: %w", config.Name, err)
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCProvider{
		config:   config,
		verifier: provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
		},
	}, nil
}

// Name returns the provider instance name.
func (p *OIDCProvider) Name() string {
	return p.config.Name
}

// Mappings returns the provider's claim mapping configuration.
func (p *OIDCProvider) Mappings() ClaimMappings {
	return p.config.ClaimMappings
}

// LoginURL returns the provider's authorization endpoint URL for state.
func (p *OIDCProvider) LoginURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// standardClaims are the OIDC claims mapped onto the initial draft before
// any custom claim mapping runs.
type standardClaims struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

// HandleCallback exchanges the authorization code, verifies the ID token,
// and maps it to an auth event with the full raw claims payload plus an
// initial draft built from the standard profile claims.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*identity.AuthEvent, *identity.UserDraft, error) {
	if code == "" {
		return nil, nil, fmt.Errorf("missing authorization code")
	}

	oauth2Token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, nil, fmt.Errorf("missing id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var std standardClaims
	if err := idToken.Claims(&std); err != nil {
		return nil, nil, fmt.Errorf("failed to parse standard claims: %w", err)
	}
	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	username := std.PreferredUsername
	if username == "" {
		username = std.Subject
	}

	event := &identity.AuthEvent{
		Kind:     identity.EventFederated,
		Provider: p.config.Name,
		Token:    rawIDToken,
		Claims:   raw,
	}
	draft := &identity.UserDraft{
		Username:       username,
		Email:          std.Email,
		FirstName:      std.GivenName,
		LastName:       std.FamilyName,
		OAuth2Provider: p.config.Name,
		OAuth2UID:      std.Subject,
	}
	return event, draft, nil
}
