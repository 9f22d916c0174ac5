// Package accounts reconciles in-flight user drafts against the durable
// account directory: idempotent get-or-create provisioning, the moderated
// signup gate, and organization unique-id assignment.
//
// The Manager is the only writer of pending flags, and only at creation
// time; moderation approval happens out of band and is always re-read from
// the directory, never from any cache.
package accounts
