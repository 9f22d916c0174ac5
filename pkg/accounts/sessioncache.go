package accounts

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/idgate/pkg/identity"
	"github.com/platinummonkey/idgate/pkg/observability"
)

// DefaultSessionCacheSize bounds the per-instance session identity cache.
const DefaultSessionCacheSize = 4096

// SessionCache memoizes the resolved account per authentication event so
// repeated logins within one session skip the create path. Entries are
// advisory: the bounded LRU may evict any entry at any time, which only
// costs an extra directory round-trip. It must never be consulted for
// moderation state.
type SessionCache struct {
	entries *lru.Cache[string, *Account]
	metrics *observability.Metrics
}

// NewSessionCache creates a cache holding up to size entries; size <= 0
// uses DefaultSessionCacheSize. metrics may be nil.
func NewSessionCache(size int, metrics *observability.Metrics) (*SessionCache, error) {
	if size <= 0 {
		size = DefaultSessionCacheSize
	}
	entries, err := lru.New[string, *Account](size)
	if err != nil {
		return nil, err
	}
	return &SessionCache{entries: entries, metrics: metrics}, nil
}

// Lookup returns the account previously resolved for the event, if any.
func (c *SessionCache) Lookup(event *identity.AuthEvent) (*Account, bool) {
	if event.Token == "" {
		return nil, false
	}
	acct, ok := c.entries.Get(event.Token)
	if c.metrics != nil {
		if ok {
			c.metrics.CacheHitsTotal.Inc()
		} else {
			c.metrics.CacheMissesTotal.Inc()
		}
	}
	return acct, ok
}

// Store remembers the resolved account for the event.
func (c *SessionCache) Store(event *identity.AuthEvent, acct *Account) {
	if event.Token == "" {
		return
	}
	c.entries.Add(event.Token, acct)
}

// Forget drops the entry for the event, typically on logout.
func (c *SessionCache) Forget(event *identity.AuthEvent) {
	if event.Token == "" {
		return
	}
	c.entries.Remove(event.Token)
}
