// Package identity holds the request-scoped user model and the ordered
// customizer chain that enriches it during a single authentication event.
//
// A UserDraft is created by the boundary layer (OIDC callback or trusted
// pre-auth headers), mutated in place by each registered Customizer in
// ascending Order(), and handed off as the authenticated principal once the
// chain completes. The draft is owned by exactly one request; the durable
// copy of the identity lives in the accounts directory.
package identity
