package sso

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/idgate/pkg/identity"
)

// Trusted proxy headers. The upstream proxy authenticates the caller and
// vouches for these values; the gateway must only honor them on requests
// flagged as pre-authenticated.
const (
	HeaderPreAuth   = "sec-proxy-auth"
	HeaderUsername  = "sec-username"
	HeaderEmail     = "sec-email"
	HeaderFirstName = "sec-firstname"
	HeaderLastName  = "sec-lastname"
	HeaderOrg       = "sec-org"
	HeaderRoles     = "sec-roles"
)

// IsPreAuthenticated reports whether the request carries a pre-auth
// assertion from the trusted proxy.
func IsPreAuthenticated(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(HeaderPreAuth), "true") &&
		r.Header.Get(HeaderUsername) != ""
}

// FromPreAuthHeaders maps the trusted proxy headers onto an auth event and
// initial draft. The username header doubles as the advisory cache token:
// the proxy sends the same identity for every request of a session.
func FromPreAuthHeaders(r *http.Request) (*identity.AuthEvent, *identity.UserDraft) {
	draft := &identity.UserDraft{
		Username:     r.Header.Get(HeaderUsername),
		Email:        r.Header.Get(HeaderEmail),
		FirstName:    r.Header.Get(HeaderFirstName),
		LastName:     r.Header.Get(HeaderLastName),
		Organization: r.Header.Get(HeaderOrg),
	}
	if raw := r.Header.Get(HeaderRoles); raw != "" {
		for _, role := range strings.Split(raw, ";") {
			if role = strings.TrimSpace(role); role != "" {
				draft.AddRole(role)
			}
		}
	}

	event := &identity.AuthEvent{
		Kind:  identity.EventPreAuth,
		Token: "preauth:" + draft.Username,
	}
	return event, draft
}
