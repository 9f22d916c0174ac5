// Package session provides per-session attribute storage for the gateway.
// Attributes are small short-lived strings keyed by session id, such as a
// captured post-login redirect target.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

// DefaultTTL bounds how long a session attribute survives without being
// consumed.
const DefaultTTL = 30 * time.Minute

// CookieName carries the gateway session id.
const CookieName = "idgate_session"

// AttributeStore stores short-lived per-session attributes.
type AttributeStore interface {
	// Put stores value under (sessionID, name) for at most ttl.
	Put(ctx context.Context, sessionID, name, value string, ttl time.Duration) error

	// Get returns the stored value, or "" and false when absent or expired.
	Get(ctx context.Context, sessionID, name string) (string, bool, error)

	// Take returns the stored value and removes it in one step.
	Take(ctx context.Context, sessionID, name string) (string, bool, error)

	// Remove drops the attribute if present.
	Remove(ctx context.Context, sessionID, name string) error
}

// ID returns the request's session id, creating one and setting its cookie
// on the response when the request has none.
func ID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := newID()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func newID() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
