package identity

// UserDraft is the mutable, request-scoped identity record flowing through
// the customizer chain. Role order is meaningful: the first occurrence of a
// role name wins, later duplicates are dropped.
type UserDraft struct {
	Username     string   `json:"username"`
	Email        string   `json:"email,omitempty"`
	FirstName    string   `json:"first_name,omitempty"`
	LastName     string   `json:"last_name,omitempty"`
	Organization string   `json:"organization,omitempty"`
	OrgUniqueID  string   `json:"org_unique_id,omitempty"`
	Roles        []string `json:"roles"`

	// ExternalAuth marks identities vouched for outside the gateway,
	// either by a federated provider or by the trusted proxy.
	ExternalAuth bool `json:"external_auth"`

	// OAuth2Provider and OAuth2UID identify a federated identity. Both are
	// set for federated logins and empty for pre-authenticated ones.
	OAuth2Provider string `json:"oauth2_provider,omitempty"`
	OAuth2UID      string `json:"oauth2_uid,omitempty"`
}

// AddRole appends roles, dropping names the draft already carries.
func (d *UserDraft) AddRole(roles ...string) {
	for _, r := range roles {
		if r == "" || d.HasRole(r) {
			continue
		}
		d.Roles = append(d.Roles, r)
	}
}

// PrependRoles inserts roles ahead of the existing ones, preserving their
// given order. Existing occurrences of a prepended role are removed so the
// new position wins.
func (d *UserDraft) PrependRoles(roles ...string) {
	if len(roles) == 0 {
		return
	}
	merged := make([]string, 0, len(roles)+len(d.Roles))
	seen := make(map[string]struct{}, len(roles)+len(d.Roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range d.Roles {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		merged = append(merged, r)
	}
	d.Roles = merged
}

// SetRoles replaces the role list entirely, deduplicating first-wins.
func (d *UserDraft) SetRoles(roles []string) {
	d.Roles = nil
	d.AddRole(roles...)
}

// HasRole reports whether the draft already carries the named role.
func (d *UserDraft) HasRole(role string) bool {
	for _, r := range d.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the draft.
func (d *UserDraft) Clone() *UserDraft {
	out := *d
	out.Roles = append([]string(nil), d.Roles...)
	return &out
}
