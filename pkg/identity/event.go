package identity

// EventKind classifies how the caller authenticated.
type EventKind string

const (
	// EventFederated is an OAuth2/OIDC login mapped from a provider assertion.
	EventFederated EventKind = "federated"
	// EventPreAuth is a login vouched for by the trusted upstream proxy.
	EventPreAuth EventKind = "preauth"
)

// AuthEvent is the opaque per-login-attempt handle. It is never persisted;
// its Token serves only as an advisory cache key scoped to one session.
type AuthEvent struct {
	Kind     EventKind
	Provider string

	// Token is the opaque session/token handle for this login attempt.
	Token string

	// Claims carries the raw federated claim payload, nil for pre-auth.
	Claims map[string]any
}
