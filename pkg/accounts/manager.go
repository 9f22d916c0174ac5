package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/idgate/pkg/identity"
	"github.com/platinummonkey/idgate/pkg/observability"
)

// Manager orchestrates account lookup and creation against the directory.
// It is safe for concurrent use; concurrent first-logins for the same
// identity resolve to exactly one persisted account.
type Manager struct {
	store      Store
	moderation ModerationConfig
	defaultOrg string
	log        *observability.Logger
	metrics    *observability.Metrics
	tracer     trace.Tracer

	creates singleflight.Group
	newID   func() string
}

// NewManager creates a Manager. metrics may be nil.
func NewManager(store Store, moderation ModerationConfig, defaultOrg string, log *observability.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		store:      store,
		moderation: moderation,
		defaultOrg: defaultOrg,
		log:        log,
		metrics:    metrics,
		tracer:     otel.Tracer("idgate/accounts"),
		newID:      uuid.NewString,
	}
}

// Find looks up the durable account for a draft: by provider and external
// uid for federated identities, by username otherwise. It never creates.
func (m *Manager) Find(ctx context.Context, draft *identity.UserDraft) (*Account, error) {
	start := time.Now()
	var (
		acct *Account
		err  error
	)
	if draft.OAuth2Provider != "" && draft.OAuth2UID != "" {
		acct, err = m.store.FindByExternalUID(ctx, draft.OAuth2Provider, draft.OAuth2UID)
	} else {
		acct, err = m.store.FindByUsername(ctx, draft.Username)
	}
	m.metrics.ObserveDirectoryOp("find", opStatus(err), time.Since(start))
	return acct, err
}

// GetOrCreate returns the existing account for the draft's identity or
// creates it. Safe to call repeatedly: a lost insert race is absorbed by
// re-reading, and concurrent in-process callers share a single creation.
func (m *Manager) GetOrCreate(ctx context.Context, draft *identity.UserDraft) (*Account, error) {
	ctx, span := m.tracer.Start(ctx, "accounts.GetOrCreate",
		trace.WithAttributes(attribute.String("identity.username", draft.Username)))
	defer span.End()

	acct, err := m.Find(ctx, draft)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	key := creationKey(draft)
	created, err, _ := m.creates.Do(key, func() (any, error) {
		return m.create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return created.(*Account), nil
}

func (m *Manager) create(ctx context.Context, draft *identity.UserDraft) (*Account, error) {
	// A federated login must not silently adopt an email some other
	// account already owns.
	if draft.OAuth2Provider != "" && draft.Email != "" {
		existing, err := m.store.FindByEmail(ctx, draft.Email)
		switch {
		case err == nil && existing.Username != draft.Username:
			return nil, fmt.Errorf("%w: %s", ErrDuplicatedEmail, draft.Email)
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}

	acct := m.accountFromDraft(draft)
	acct.Pending = m.moderation.PendingFor(draft.OAuth2Provider)

	for _, role := range acct.Roles {
		if err := m.store.EnsureRole(ctx, role); err != nil {
			m.log.WithError(err).WithField("role", role).Warn("could not ensure role exists")
		}
	}

	start := time.Now()
	stored, err := m.store.Insert(ctx, acct)
	m.metrics.ObserveDirectoryOp("insert", opStatus(err), time.Since(start))

	if errors.Is(err, ErrDuplicateKey) {
		// Lost the race against another gateway instance; the winner's
		// account is authoritative.
		if m.metrics != nil {
			m.metrics.AccountCreateRace.Inc()
		}
		m.log.WithField("username", draft.Username).Debug("insert lost creation race, re-reading")
		return m.Find(ctx, draft)
	}
	if err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.AccountsCreated.WithLabelValues(draft.OAuth2Provider, fmt.Sprint(stored.Pending)).Inc()
	}
	m.log.WithFields(map[string]interface{}{
		"username": stored.Username,
		"provider": stored.OAuth2Provider,
		"pending":  stored.Pending,
	}).Info("created account")
	return stored, nil
}

// CreateOrgUniqueIDIfMissing assigns a stable organization-scoped unique id
// the first time a draft's organization is seen. No-op without an
// organization; idempotent otherwise.
func (m *Manager) CreateOrgUniqueIDIfMissing(ctx context.Context, draft *identity.UserDraft) error {
	org := draft.Organization
	if org == "" {
		org = m.defaultOrg
	}
	if org == "" {
		return nil
	}
	id, err := m.store.EnsureOrgUniqueID(ctx, org, m.newID())
	if err != nil {
		return fmt.Errorf("assigning unique id for organization %q: %w", org, err)
	}
	draft.OrgUniqueID = id
	return nil
}

// IsPending re-reads the durable pending flag for the draft's identity. An
// administrator may approve an account between two requests of the same
// session, so this never consults a cached copy. A missing account reports
// not-pending.
func (m *Manager) IsPending(ctx context.Context, draft *identity.UserDraft) (bool, error) {
	pending, err := m.store.PendingByUsername(ctx, draft.Username)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return pending, err
}

func (m *Manager) accountFromDraft(draft *identity.UserDraft) *Account {
	org := draft.Organization
	if org == "" {
		org = m.defaultOrg
	}
	return &Account{
		Username:       draft.Username,
		Email:          draft.Email,
		FirstName:      draft.FirstName,
		LastName:       draft.LastName,
		Org:            org,
		Roles:          append([]string(nil), draft.Roles...),
		OAuth2Provider: draft.OAuth2Provider,
		OAuth2UID:      draft.OAuth2UID,
	}
}

// DraftFromAccount maps the durable record back onto a request-scoped draft.
func DraftFromAccount(acct *Account) *identity.UserDraft {
	return &identity.UserDraft{
		Username:       acct.Username,
		Email:          acct.Email,
		FirstName:      acct.FirstName,
		LastName:       acct.LastName,
		Organization:   acct.Org,
		Roles:          append([]string(nil), acct.Roles...),
		OAuth2Provider: acct.OAuth2Provider,
		OAuth2UID:      acct.OAuth2UID,
	}
}

func creationKey(draft *identity.UserDraft) string {
	if draft.OAuth2Provider != "" && draft.OAuth2UID != "" {
		return draft.OAuth2Provider + "\x00" + draft.OAuth2UID
	}
	return "username\x00" + draft.Username
}

func opStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate"
	default:
		return "error"
	}
}
