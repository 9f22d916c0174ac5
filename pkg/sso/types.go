package sso

import (
	"time"

	"github.com/platinummonkey/idgate/pkg/claims"
	"github.com/platinummonkey/idgate/pkg/roles"
)

// ProviderConfig is the per-provider OpenID Connect configuration, including
// the claim mappings that drive draft enrichment.
type ProviderConfig struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"` // Unique name for this provider instance
	Enabled bool   `json:"enabled"`

	IssuerURL    string   `json:"issuer_url"` // Discovery endpoint
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"` // Never expose secret in JSON
	RedirectURL  string   `json:"redirect_url"`
	Scopes       []string `json:"scopes"`

	// ModeratedSignup overrides the gateway-wide moderated signup default
	// for accounts created through this provider. Nil inherits the default.
	ModeratedSignup *bool `json:"moderated_signup,omitempty"`

	ClaimMappings ClaimMappings `json:"claim_mappings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClaimMappings selects which claims feed which draft fields. Each field is
// a list of path expressions tried in order; results concatenate.
type ClaimMappings struct {
	// UserID replaces the draft username when it matches.
	UserID claims.PathSpec `json:"user_id,omitempty"`

	// Organization replaces the draft organization when it matches.
	Organization claims.PathSpec `json:"organization,omitempty"`

	// Roles feeds the role mapper.
	Roles claims.PathSpec `json:"roles,omitempty"`

	// RolesAppend merges mapped roles ahead of existing ones instead of
	// replacing them.
	RolesAppend bool `json:"roles_append"`

	// RolesUppercase and RolesNormalize toggle role name cleanup.
	RolesUppercase bool `json:"roles_uppercase"`
	RolesNormalize bool `json:"roles_normalize"`
}

// RolePolicy converts the mapping toggles into a normalization policy.
func (m ClaimMappings) RolePolicy() roles.Policy {
	return roles.Policy{
		Uppercase: m.RolesUppercase,
		Normalize: m.RolesNormalize,
		Append:    m.RolesAppend,
	}
}
