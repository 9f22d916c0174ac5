package sso

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/idgate/pkg/accounts"
	"github.com/platinummonkey/idgate/pkg/async"
	"github.com/platinummonkey/idgate/pkg/audit"
	"github.com/platinummonkey/idgate/pkg/claims"
	"github.com/platinummonkey/idgate/pkg/contextkeys"
	"github.com/platinummonkey/idgate/pkg/identity"
	"github.com/platinummonkey/idgate/pkg/observability"
	"github.com/platinummonkey/idgate/pkg/redirect"
	"github.com/platinummonkey/idgate/pkg/session"
)

const (
	stateCookieName  = "idgate_oauth_state"
	stateCookieTTL   = 10 * time.Minute
	principalAttr    = "principal"
	loginOutcomeOK   = "success"
	loginOutcomeFail = "failure"
)

// Handlers exposes the login and callback endpoints for every configured
// provider and the pre-auth entry point for proxied requests.
type Handlers struct {
	providers       map[string]*OIDCProvider
	chain           *identity.Chain
	sessions        session.AttributeStore
	defaultRedirect string
	log             *observability.Logger
	metrics         *observability.Metrics
	audit           audit.Recorder
}

// SetAudit enables persistent login auditing. Without it, attempts are only
// logged.
func (h *Handlers) SetAudit(recorder audit.Recorder) {
	h.audit = recorder
}

// NewHandlers wires the authentication boundary. metrics may be nil.
func NewHandlers(providers []*OIDCProvider, chain *identity.Chain, sessions session.AttributeStore, defaultRedirect string, log *observability.Logger, metrics *observability.Metrics) *Handlers {
	byName := make(map[string]*OIDCProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Handlers{
		providers:       byName,
		chain:           chain,
		sessions:        sessions,
		defaultRedirect: defaultRedirect,
		log:             log,
		metrics:         metrics,
	}
}

// Register mounts the SSO routes on the router.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/auth/sso/{provider}/login", h.Login).Methods(http.MethodGet)
	r.HandleFunc("/auth/sso/{provider}/callback", h.Callback).Methods(http.MethodGet)
}

// Login starts the authorization code flow for the named provider.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[mux.Vars(r)["provider"]]
	if !ok {
		http.Error(w, "unknown identity provider", http.StatusNotFound)
		return
	}

	state := newState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/sso/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.LoginURL(state), http.StatusFound)
}

// Callback finishes the authorization code flow: state check, code exchange,
// draft mapping, then the full customizer chain. On success the resolved
// principal is bound to the session and the caller is redirected to the
// captured or default post-login target.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	providerName := mux.Vars(r)["provider"]
	provider, ok := h.providers[providerName]
	if !ok {
		http.Error(w, "unknown identity provider", http.StatusNotFound)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.observeLogin(identity.EventFederated, providerName, loginOutcomeFail, start)
		http.Error(w, "state mismatch", http.StatusUnauthorized)
		return
	}
	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/sso/", MaxAge: -1})

	ctx := r.Context()
	event, draft, err := provider.HandleCallback(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.observeLogin(identity.EventFederated, providerName, loginOutcomeFail, start)
		h.log.WithError(err).WithField("provider", providerName).Warn("oidc callback rejected")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	principal, err := h.chain.Apply(ctx, event, draft)
	if err != nil {
		h.observeLogin(identity.EventFederated, providerName, loginOutcomeFail, start)
		h.auditLogin(r, identity.EventFederated, providerName, draft.Username, loginOutcomeFail, err.Error())
		h.writeChainError(w, providerName, err)
		return
	}

	sessionID := session.ID(w, r)
	if err := h.bindPrincipal(r, sessionID, principal); err != nil {
		h.log.WithError(err).Error("could not bind principal to session")
		http.Error(w, "session storage unavailable", http.StatusServiceUnavailable)
		return
	}

	h.observeLogin(identity.EventFederated, providerName, loginOutcomeOK, start)
	h.auditLogin(r, identity.EventFederated, providerName, principal.Username, loginOutcomeOK, "")

	redirect.OnSuccess(ctx, w, r, h.sessions, sessionID, h.defaultRedirect)
}

// PreAuthMiddleware resolves pre-authenticated proxy requests through the
// chain and attaches the resulting principal to the request context.
// Requests without a pre-auth assertion pass through untouched.
func (h *Handlers) PreAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsPreAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		event, draft := FromPreAuthHeaders(r)
		principal, err := h.chain.Apply(r.Context(), event, draft)
		if err != nil {
			h.observeLogin(identity.EventPreAuth, "", loginOutcomeFail, start)
			h.auditLogin(r, identity.EventPreAuth, "", draft.Username, loginOutcomeFail, err.Error())
			h.writeChainError(w, "", err)
			return
		}

		h.observeLogin(identity.EventPreAuth, "", loginOutcomeOK, start)
		h.auditLogin(r, identity.EventPreAuth, "", principal.Username, loginOutcomeOK, "")
		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Principal returns the session-bound principal for the request, if any.
func (h *Handlers) Principal(r *http.Request) (*identity.UserDraft, bool) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	raw, ok, err := h.sessions.Get(r.Context(), cookie.Value, principalAttr)
	if err != nil || !ok {
		return nil, false
	}
	var principal identity.UserDraft
	if err := json.Unmarshal([]byte(raw), &principal); err != nil {
		return nil, false
	}
	return &principal, true
}

func (h *Handlers) bindPrincipal(r *http.Request, sessionID string, principal *identity.UserDraft) error {
	raw, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	return h.sessions.Put(r.Context(), sessionID, principalAttr, string(raw), session.DefaultTTL)
}

// writeChainError maps chain failures onto HTTP statuses: a pending account
// is a deliberate 403 with its own message, configuration and integration
// defects fail closed with a 500, anything else is treated as a transient
// directory failure.
func (h *Handlers) writeChainError(w http.ResponseWriter, providerName string, err error) {
	log := h.log
	if providerName != "" {
		log = log.WithField("provider", providerName)
	}

	var mismatch *claims.TypeMismatchError
	var badPath *claims.InvalidPathError
	switch {
	case errors.Is(err, identity.ErrPendingApproval):
		http.Error(w, "your account is awaiting moderator approval", http.StatusForbidden)
	case errors.Is(err, accounts.ErrDuplicatedEmail):
		log.WithError(err).Warn("login rejected, email already in use")
		http.Error(w, "an account with this email already exists", http.StatusConflict)
	case identity.IsInvariantViolation(err), errors.As(err, &mismatch), errors.As(err, &badPath):
		log.WithError(err).Error("identity chain configuration defect")
		http.Error(w, "authentication misconfigured", http.StatusInternalServerError)
	default:
		log.WithError(err).Error("identity chain failed")
		http.Error(w, "account directory unavailable", http.StatusServiceUnavailable)
	}
}

func (h *Handlers) observeLogin(kind identity.EventKind, provider, outcome string, start time.Time) {
	h.metrics.ObserveLogin(string(kind), provider, outcome, time.Since(start))
}

// auditLogin logs the attempt and, when a recorder is configured, persists
// it in the background so the response is never held up by the audit sink.
func (h *Handlers) auditLogin(r *http.Request, kind identity.EventKind, provider, username, outcome, reason string) {
	log := h.log.WithFields(map[string]interface{}{
		"kind":     string(kind),
		"provider": provider,
		"username": username,
	})
	if outcome == loginOutcomeOK {
		log.Info("login completed")
	} else {
		log.WithField("reason", reason).Warn("login rejected")
	}

	if h.audit == nil {
		return
	}
	rec := &audit.Record{
		Timestamp:  time.Now().UTC(),
		Kind:       string(kind),
		Provider:   provider,
		Username:   username,
		Outcome:    outcome,
		Reason:     reason,
		RemoteAddr: r.RemoteAddr,
		RequestID:  contextkeys.GetRequestID(r.Context()),
	}
	async.SafeGo(r.Context(), 5*time.Second, "login audit record", func(ctx context.Context) error {
		return h.audit.Record(ctx, rec)
	})
}

func newState() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
