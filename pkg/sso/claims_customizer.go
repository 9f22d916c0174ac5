package sso

import (
	"context"

	"github.com/platinummonkey/idgate/pkg/claims"
	"github.com/platinummonkey/idgate/pkg/identity"
	"github.com/platinummonkey/idgate/pkg/roles"
)

// claimsCustomizerOrder places claim enrichment after the static
// config-role grants but well before account provisioning.
const claimsCustomizerOrder = 100

// ClaimsCustomizer enriches federated drafts from the raw claims payload
// using per-provider path expressions: a user id override, an organization,
// and role mapping with normalization.
type ClaimsCustomizer struct {
	extractor *claims.Extractor
	mappings  map[string]ClaimMappings
}

// NewClaimsCustomizer builds the customizer from per-provider mappings
// keyed by provider name.
func NewClaimsCustomizer(extractor *claims.Extractor, mappings map[string]ClaimMappings) *ClaimsCustomizer {
	return &ClaimsCustomizer{extractor: extractor, mappings: mappings}
}

func (c *ClaimsCustomizer) Order() int { return claimsCustomizerOrder }

func (c *ClaimsCustomizer) Apply(_ context.Context, event *identity.AuthEvent, draft *identity.UserDraft) (*identity.UserDraft, error) {
	if event.Kind != identity.EventFederated || event.Claims == nil {
		return draft, nil
	}
	mapping, ok := c.mappings[event.Provider]
	if !ok {
		return draft, nil
	}

	if len(mapping.UserID) > 0 {
		values, err := c.extractor.Extract(mapping.UserID, event.Claims)
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			draft.Username = values[0]
		}
	}

	if len(mapping.Organization) > 0 {
		values, err := c.extractor.Extract(mapping.Organization, event.Claims)
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			draft.Organization = values[0]
		}
	}

	if len(mapping.Roles) > 0 {
		mapper := roles.NewMapper(c.extractor, mapping.Roles, mapping.RolePolicy())
		if err := mapper.Apply(event.Claims, draft); err != nil {
			return nil, err
		}
	}

	return draft, nil
}
