package accounts

import (
	"context"
	"errors"
	"time"
)

// Account is the durable directory record for one identity.
type Account struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Org       string   `json:"org,omitempty"`
	Roles     []string `json:"roles"`

	// Pending marks an account awaiting moderator approval. Set once at
	// creation; flipped to false only by an out-of-band moderation action.
	Pending bool `json:"pending"`

	// OAuth2Provider and OAuth2UID link the account to its federated
	// identity; both empty for pre-authenticated accounts.
	OAuth2Provider string `json:"oauth2_provider,omitempty"`
	OAuth2UID      string `json:"oauth2_uid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrNotFound signals a lookup that matched no account.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateKey signals an insert that lost a uniqueness race; the
	// manager recovers by re-reading, callers never see it.
	ErrDuplicateKey = errors.New("account already exists")

	// ErrDuplicatedEmail signals a federated login whose email already
	// belongs to a different username.
	ErrDuplicatedEmail = errors.New("email already in use by another account")
)

// Store is the directory-backed persistence collaborator. Implementations
// must enforce uniqueness on username and on (provider, uid) so that two
// concurrent inserts for one identity cannot both succeed; the loser gets
// ErrDuplicateKey. Infrastructure failures pass through wrapped, they are
// retryable and must never be reported as ErrNotFound.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByExternalUID(ctx context.Context, provider, uid string) (*Account, error)

	// Insert persists a new account atomically and returns the stored copy.
	Insert(ctx context.Context, account *Account) (*Account, error)

	// PendingByUsername reads the durable pending flag, bypassing caches.
	PendingByUsername(ctx context.Context, username string) (bool, error)

	// EnsureRole makes sure a role entry exists, tolerating already-exists.
	EnsureRole(ctx context.Context, name string) error

	// EnsureOrgUniqueID idempotently assigns candidate as the stable
	// unique id of the named organization and returns whichever id the
	// organization ends up holding.
	EnsureOrgUniqueID(ctx context.Context, org, candidate string) (string, error)
}
