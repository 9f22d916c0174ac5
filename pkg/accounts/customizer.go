package accounts

import (
	"context"
	"errors"

	"github.com/platinummonkey/idgate/pkg/identity"
)

// Customizer is the account-provisioning chain step. It runs last so every
// other enrichment has already mutated the draft before persistence, and
// replaces the draft with the stored identity on success.
type Customizer struct {
	manager *Manager
	cache   *SessionCache
}

func NewCustomizer(manager *Manager, cache *SessionCache) *Customizer {
	return &Customizer{manager: manager, cache: cache}
}

func (c *Customizer) Order() int { return identity.OrderLast }

func (c *Customizer) Apply(ctx context.Context, event *identity.AuthEvent, draft *identity.UserDraft) (*identity.UserDraft, error) {
	switch event.Kind {
	case identity.EventFederated:
		if draft.OAuth2Provider == "" {
			return nil, &identity.InvariantError{Kind: event.Kind, Field: "oauth2 provider"}
		}
		if draft.OAuth2UID == "" {
			return nil, &identity.InvariantError{Kind: event.Kind, Field: "oauth2 uid"}
		}
	case identity.EventPreAuth:
		if draft.Username == "" {
			return nil, &identity.InvariantError{Kind: event.Kind, Field: "username"}
		}
	default:
		// Not an event this step provisions for; pass the draft through.
		return draft, nil
	}

	var acct *Account
	if cached, ok := c.cache.Lookup(event); ok {
		// Repeat login within this session: re-validate against the
		// directory instead of trusting the cached copy, and skip the
		// first-login work.
		found, err := c.manager.Find(ctx, draft)
		switch {
		case err == nil:
			acct = found
		case errors.Is(err, ErrNotFound):
			acct = cached
		default:
			return nil, err
		}
	} else {
		created, err := c.manager.GetOrCreate(ctx, draft)
		if err != nil {
			return nil, err
		}
		if err := c.manager.CreateOrgUniqueIDIfMissing(ctx, draft); err != nil {
			return nil, err
		}
		acct = created
	}

	// Moderation gate: always a fresh read, an approval may have landed
	// since the account was cached.
	pending, err := c.manager.IsPending(ctx, &identity.UserDraft{Username: acct.Username})
	if err != nil {
		return nil, err
	}
	if pending {
		if c.manager.metrics != nil {
			c.manager.metrics.PendingRejections.WithLabelValues(draft.OAuth2Provider).Inc()
		}
		return nil, identity.ErrPendingApproval
	}

	c.cache.Store(event, acct)

	resolved := DraftFromAccount(acct)
	resolved.OrgUniqueID = draft.OrgUniqueID
	resolved.ExternalAuth = true
	return resolved, nil
}
