package accounts

// ModerationConfig decides whether newly created accounts start pending.
type ModerationConfig struct {
	// ModeratedSignup is the global default.
	ModeratedSignup bool
	// ProviderOverrides lets a federated provider force moderation on or
	// off regardless of the global default.
	ProviderOverrides map[string]bool
}

// PendingFor computes the pending flag for a new account. Precedence:
// explicit per-provider setting > global default > implicit false.
func (c ModerationConfig) PendingFor(provider string) bool {
	if provider != "" {
		if override, ok := c.ProviderOverrides[provider]; ok {
			return override
		}
	}
	return c.ModeratedSignup
}
