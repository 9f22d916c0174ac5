// Package postgres implements the accounts.Store interface on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/idgate/pkg/accounts"
)

const uniqueViolation = "23505"

// Store is the PostgreSQL-backed account directory. Uniqueness of username
// and of (oauth2_provider, oauth2_uid) is enforced by table constraints, so
// concurrent inserts for one identity resolve to a single winner.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store and ensures its schema exists.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure accounts schema: %w", err)
	}
	return s, nil
}

// Open connects to PostgreSQL with a sensible pool configuration, verifies
// the connection, and returns a ready Store.
func Open(ctx context.Context, url string, maxConns, minConns int) (*Store, *sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

func (s *Store) ensureSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255),
		first_name VARCHAR(255),
		last_name VARCHAR(255),
		org VARCHAR(255),
		roles TEXT[] NOT NULL DEFAULT '{}',
		pending BOOLEAN NOT NULL DEFAULT FALSE,
		oauth2_provider VARCHAR(255),
		oauth2_uid VARCHAR(255),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_external
		ON accounts(oauth2_provider, oauth2_uid)
		WHERE oauth2_provider <> '' AND oauth2_uid <> '';
	CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);

	CREATE TABLE IF NOT EXISTS roles (
		name VARCHAR(255) PRIMARY KEY,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS organizations (
		name VARCHAR(255) PRIMARY KEY,
		unique_id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	_, err := s.db.Exec(query)
	return err
}

const accountColumns = `id, username, email, first_name, last_name, org, roles, pending, oauth2_provider, oauth2_uid, created_at, updated_at`

func (s *Store) FindByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, username))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1 ORDER BY id LIMIT 1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, email))
}

func (s *Store) FindByExternalUID(ctx context.Context, provider, uid string) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE oauth2_provider = $1 AND oauth2_uid = $2`
	return s.scanOne(s.db.QueryRowContext(ctx, query, provider, uid))
}

func (s *Store) Insert(ctx context.Context, acct *accounts.Account) (*accounts.Account, error) {
	query := `
		INSERT INTO accounts (
			username, email, first_name, last_name, org, roles, pending,
			oauth2_provider, oauth2_uid
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	stored := *acct
	err := s.db.QueryRowContext(ctx, query,
		acct.Username, acct.Email, acct.FirstName, acct.LastName, acct.Org,
		pq.Array(acct.Roles), acct.Pending,
		acct.OAuth2Provider, acct.OAuth2UID,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)

	if isUniqueViolation(err) {
		return nil, accounts.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return &stored, nil
}

func (s *Store) PendingByUsername(ctx context.Context, username string) (bool, error) {
	var pending bool
	err := s.db.QueryRowContext(ctx,
		`SELECT pending FROM accounts WHERE username = $1`, username).Scan(&pending)
	if errors.Is(err, sql.ErrNoRows) {
		return false, accounts.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pending flag: %w", err)
	}
	return pending, nil
}

func (s *Store) EnsureRole(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("failed to ensure role %q: %w", name, err)
	}
	return nil
}

// EnsureOrgUniqueID assigns candidate as the organization's unique id if it
// has none, and returns whichever id the organization holds afterwards. The
// upsert makes concurrent first-assignments converge on one id.
func (s *Store) EnsureOrgUniqueID(ctx context.Context, org, candidate string) (string, error) {
	query := `
		INSERT INTO organizations (name, unique_id)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET unique_id = organizations.unique_id
		RETURNING unique_id
	`

	var id string
	err := s.db.QueryRowContext(ctx, query, org, candidate).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to ensure unique id for organization %q: %w", org, err)
	}
	return id, nil
}

func (s *Store) scanOne(row *sql.Row) (*accounts.Account, error) {
	var acct accounts.Account
	err := row.Scan(
		&acct.ID, &acct.Username, &acct.Email, &acct.FirstName, &acct.LastName,
		&acct.Org, pq.Array(&acct.Roles), &acct.Pending,
		&acct.OAuth2Provider, &acct.OAuth2UID,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &acct, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
