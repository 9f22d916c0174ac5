package identity

import "context"

// ConfigRolesCustomizer assigns statically configured roles to every
// authenticated user, optionally per provider. It runs first so later steps
// (claims mapping, account provisioning) see the configured baseline.
type ConfigRolesCustomizer struct {
	// Global roles are granted regardless of how the user authenticated.
	Global []string
	// PerProvider roles are granted when the event's provider matches.
	PerProvider map[string][]string
}

func NewConfigRolesCustomizer(global []string, perProvider map[string][]string) *ConfigRolesCustomizer {
	return &ConfigRolesCustomizer{Global: global, PerProvider: perProvider}
}

func (c *ConfigRolesCustomizer) Order() int { return 0 }

func (c *ConfigRolesCustomizer) Apply(_ context.Context, event *AuthEvent, draft *UserDraft) (*UserDraft, error) {
	draft.AddRole(c.Global...)
	if event.Provider != "" {
		draft.AddRole(c.PerProvider[event.Provider]...)
	}
	return draft, nil
}
