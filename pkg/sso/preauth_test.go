package sso

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/idgate/pkg/identity"
)

func preAuthRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set(HeaderPreAuth, "true")
	r.Header.Set(HeaderUsername, "jdoe")
	r.Header.Set(HeaderEmail, "jdoe@example.org")
	r.Header.Set(HeaderFirstName, "John")
	r.Header.Set(HeaderLastName, "Doe")
	r.Header.Set(HeaderOrg, "geo")
	r.Header.Set(HeaderRoles, "ADMIN;USER; EXTRA ;")
	return r
}

func TestIsPreAuthenticated(t *testing.T) {
	assert.True(t, IsPreAuthenticated(preAuthRequest()))

	plain := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	assert.False(t, IsPreAuthenticated(plain))

	// The flag alone is not enough without an identity.
	flagOnly := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	flagOnly.Header.Set(HeaderPreAuth, "true")
	assert.False(t, IsPreAuthenticated(flagOnly))
}

func TestFromPreAuthHeaders(t *testing.T) {
	event, draft := FromPreAuthHeaders(preAuthRequest())

	assert.Equal(t, identity.EventPreAuth, event.Kind)
	assert.Equal(t, "preauth:jdoe", event.Token)
	assert.Nil(t, event.Claims)

	assert.Equal(t, "jdoe", draft.Username)
	assert.Equal(t, "jdoe@example.org", draft.Email)
	assert.Equal(t, "John", draft.FirstName)
	assert.Equal(t, "Doe", draft.LastName)
	assert.Equal(t, "geo", draft.Organization)
	assert.Equal(t, []string{"ADMIN", "USER", "EXTRA"}, draft.Roles)
	assert.Empty(t, draft.OAuth2Provider)
}

func TestFromPreAuthHeaders_NoRoles(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderPreAuth, "true")
	r.Header.Set(HeaderUsername, "jdoe")

	_, draft := FromPreAuthHeaders(r)

	require.Equal(t, "jdoe", draft.Username)
	assert.Empty(t, draft.Roles)
}
