package audit

import (
	"context"
	"time"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Record is one authentication attempt as seen at the gateway boundary.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
	Provider   string    `json:"provider,omitempty"`
	Username   string    `json:"username,omitempty"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Recorder persists authentication records. Implementations must be safe for
// concurrent use; recording happens off the request path.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}
