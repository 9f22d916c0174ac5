package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// DBRecorder writes authentication records to PostgreSQL.
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder creates a database-backed recorder and ensures the
// login_audit table exists.
func NewDBRecorder(db *sql.DB) (*DBRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	recorder := &DBRecorder{db: db}
	if err := recorder.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure login_audit table: %w", err)
	}
	return recorder, nil
}

func (l *DBRecorder) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS login_audit (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		kind VARCHAR(20) NOT NULL,
		provider VARCHAR(255),
		username VARCHAR(255),
		outcome VARCHAR(20) NOT NULL,
		reason TEXT,
		ip_address VARCHAR(45),
		request_id VARCHAR(100),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_login_audit_timestamp ON login_audit(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_login_audit_username ON login_audit(username);
	CREATE INDEX IF NOT EXISTS idx_login_audit_outcome ON login_audit(outcome);
	`

	_, err := l.db.Exec(query)
	return err
}

// Record inserts one authentication record.
func (l *DBRecorder) Record(ctx context.Context, rec *Record) error {
	query := `INSERT INTO login_audit (timestamp, kind, provider, username, outcome, reason, ip_address, request_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := l.db.ExecContext(ctx, query,
		rec.Timestamp, rec.Kind, rec.Provider, rec.Username,
		rec.Outcome, rec.Reason, rec.RemoteAddr, rec.RequestID)
	if err != nil {
		return fmt.Errorf("failed to insert login audit record: %w", err)
	}
	return nil
}
