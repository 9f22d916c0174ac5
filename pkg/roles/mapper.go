package roles

import (
	"github.com/platinummonkey/idgate/pkg/claims"
	"github.com/platinummonkey/idgate/pkg/identity"
)

// Mapper extracts raw role names from a claims payload and merges the
// normalized results into a user draft per its policy.
type Mapper struct {
	extractor *claims.Extractor
	spec      claims.PathSpec
	policy    Policy
}

func NewMapper(extractor *claims.Extractor, spec claims.PathSpec, policy Policy) *Mapper {
	return &Mapper{extractor: extractor, spec: spec, policy: policy}
}

// Apply maps roles from claims onto the draft. A spec that matches nothing
// leaves the draft's roles untouched, regardless of the Append policy: a
// no-match must never wipe roles assigned by earlier enrichment steps.
func (m *Mapper) Apply(claimsPayload map[string]any, draft *identity.UserDraft) error {
	raw, err := m.extractor.Extract(m.spec, claimsPayload)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	mapped := make([]string, 0, len(raw))
	for _, r := range raw {
		if normalized := NormalizeRole(r, m.policy); normalized != "" {
			mapped = append(mapped, normalized)
		}
	}
	if len(mapped) == 0 {
		return nil
	}

	if m.policy.Append {
		draft.PrependRoles(mapped...)
	} else {
		draft.SetRoles(mapped)
	}
	return nil
}
