// Package redirect captures an optional post-login redirect target from
// login requests and replays it after a successful authentication. Targets
// are validated against a configured allow-list so the gateway cannot be
// used as an open redirector.
package redirect

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/idgate/pkg/observability"
	"github.com/platinummonkey/idgate/pkg/session"
)

// AttributeName is the session attribute holding the captured target.
const AttributeName = "post_login_redirect"

// queryParam is the query parameter carrying the requested target.
const queryParam = "redirect"

// Allowlist validates redirect targets by prefix. An empty allowlist
// rejects every target.
type Allowlist struct {
	prefixes []string
}

func NewAllowlist(prefixes []string) *Allowlist {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &Allowlist{prefixes: cleaned}
}

// Allows reports whether target matches one of the configured prefixes.
func (a *Allowlist) Allows(target string) bool {
	if target == "" {
		return false
	}
	for _, prefix := range a.prefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// Capture is a middleware that stores a requested redirect target before the
// login flow starts. On login-path requests carrying an allowed redirect
// parameter, the target is saved in the session attribute store and the
// request is replayed without the parameter so it never reaches the
// identity provider. Disallowed targets are dropped silently.
type Capture struct {
	store      session.AttributeStore
	allowlist  *Allowlist
	pathPrefix string
	ttl        time.Duration
	log        *observability.Logger
}

// NewCapture creates the middleware. pathPrefix selects the login endpoints
// to watch, typically "/auth/sso/".
func NewCapture(store session.AttributeStore, allowlist *Allowlist, pathPrefix string, log *observability.Logger) *Capture {
	return &Capture{
		store:      store,
		allowlist:  allowlist,
		pathPrefix: pathPrefix,
		ttl:        session.DefaultTTL,
		log:        log,
	}
}

func (c *Capture) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, c.pathPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		target := r.URL.Query().Get(queryParam)
		if target == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !c.allowlist.Allows(target) {
			c.log.WithField("target", target).Warn("ignoring disallowed redirect target")
			http.Redirect(w, r, stripParam(r.URL), http.StatusFound)
			return
		}

		sessionID := session.ID(w, r)
		if err := c.store.Put(r.Context(), sessionID, AttributeName, target, c.ttl); err != nil {
			c.log.WithError(err).Error("could not store redirect target")
			next.ServeHTTP(w, r)
			return
		}

		// Replay without the parameter so it is not leaked to the provider.
		http.Redirect(w, r, stripParam(r.URL), http.StatusFound)
	})
}

// OnSuccess consumes a previously captured target and redirects to it,
// falling back to defaultTarget. Call it from the post-login success path.
func OnSuccess(ctx context.Context, w http.ResponseWriter, r *http.Request, store session.AttributeStore, sessionID, defaultTarget string) {
	target, ok, err := store.Take(ctx, sessionID, AttributeName)
	if err != nil || !ok {
		target = defaultTarget
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func stripParam(u *url.URL) string {
	stripped := *u
	q := stripped.Query()
	q.Del(queryParam)
	stripped.RawQuery = q.Encode()
	return stripped.String()
}
