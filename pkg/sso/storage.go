package sso

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrProviderNotFound signals a lookup for an unknown provider name.
var ErrProviderNotFound = errors.New("sso provider not found")

// Storage persists OpenID Connect provider configurations.
type Storage struct {
	db *sql.DB
}

// NewStorage creates the storage and ensures its schema exists.
func NewStorage(db *sql.DB) (*Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	s := &Storage{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure sso_providers schema: %w", err)
	}
	return s, nil
}

func (s *Storage) ensureSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sso_providers (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		issuer_url TEXT NOT NULL,
		client_id VARCHAR(255) NOT NULL,
		client_secret TEXT NOT NULL,
		redirect_url TEXT NOT NULL,
		scopes TEXT[] NOT NULL DEFAULT '{}',
		moderated_signup BOOLEAN,
		claim_mappings JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// CreateProvider stores a new provider configuration.
func (s *Storage) CreateProvider(ctx context.Context, config *ProviderConfig) error {
	mappingsJSON, err := json.Marshal(config.ClaimMappings)
	if err != nil {
		return fmt.Errorf("failed to marshal claim mappings: %w", err)
	}

	query := `
		INSERT INTO sso_providers (
			name, enabled, issuer_url, client_id, client_secret, redirect_url,
			scopes, moderated_signup, claim_mappings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		config.Name, config.Enabled, config.IssuerURL, config.ClientID,
		config.ClientSecret, config.RedirectURL, pq.Array(config.Scopes),
		config.ModeratedSignup, mappingsJSON,
	).Scan(&config.ID, &config.CreatedAt, &config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}
	return nil
}

const providerColumns = `id, name, enabled, issuer_url, client_id, client_secret, redirect_url, scopes, moderated_signup, claim_mappings, created_at, updated_at`

// GetProvider retrieves a provider configuration by name.
func (s *Storage) GetProvider(ctx context.Context, name string) (*ProviderConfig, error) {
	query := `SELECT ` + providerColumns + ` FROM sso_providers WHERE name = $1`
	config, err := scanProvider(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return config, err
}

// ListEnabledProviders returns every enabled provider configuration.
func (s *Storage) ListEnabledProviders(ctx context.Context) ([]*ProviderConfig, error) {
	query := `SELECT ` + providerColumns + ` FROM sso_providers WHERE enabled ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var configs []*ProviderConfig
	for rows.Next() {
		config, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

// UpdateProvider replaces a provider configuration by name.
func (s *Storage) UpdateProvider(ctx context.Context, config *ProviderConfig) error {
	mappingsJSON, err := json.Marshal(config.ClaimMappings)
	if err != nil {
		return fmt.Errorf("failed to marshal claim mappings: %w", err)
	}

	query := `
		UPDATE sso_providers SET
			enabled = $2, issuer_url = $3, client_id = $4, client_secret = $5,
			redirect_url = $6, scopes = $7, moderated_signup = $8,
			claim_mappings = $9, updated_at = NOW()
		WHERE name = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		config.Name, config.Enabled, config.IssuerURL, config.ClientID,
		config.ClientSecret, config.RedirectURL, pq.Array(config.Scopes),
		config.ModeratedSignup, mappingsJSON)
	if err != nil {
		return fmt.Errorf("failed to update provider %q: %w", config.Name, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, config.Name)
	}
	return nil
}

// DeleteProvider removes a provider configuration by name.
func (s *Storage) DeleteProvider(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sso_providers WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete provider %q: %w", name, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return nil
}

// ModerationOverrides collects the per-provider moderated-signup overrides
// of every enabled provider, for the account manager's moderation config.
func (s *Storage) ModerationOverrides(ctx context.Context) (map[string]bool, error) {
	configs, err := s.ListEnabledProviders(ctx)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]bool)
	for _, config := range configs {
		if config.ModeratedSignup != nil {
			overrides[config.Name] = *config.ModeratedSignup
		}
	}
	return overrides, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*ProviderConfig, error) {
	var (
		config       ProviderConfig
		mappingsJSON []byte
	)
	err := row.Scan(
		&config.ID, &config.Name, &config.Enabled, &config.IssuerURL,
		&config.ClientID, &config.ClientSecret, &config.RedirectURL,
		pq.Array(&config.Scopes), &config.ModeratedSignup, &mappingsJSON,
		&config.CreatedAt, &config.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(mappingsJSON) > 0 {
		if err := json.Unmarshal(mappingsJSON, &config.ClaimMappings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal claim mappings for %q: %w", config.Name, err)
		}
	}
	return &config, nil
}
