// Package audit writes the append-only trail behind every mutating
// operation.  Audit writes are best-effort: a failed insert is logged
// and swallowed, because an audit outage must never fail a booking or
// a settlement.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
)

// Logger records audit events into the audit_log table.
type Logger struct {
	db *sql.DB
}

// NewLogger returns a Logger bound to the given database.  A nil db
// disables auditing (useful in tests).
func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log records one audit row for a mutating operation.  The payload is
// passed through the redaction filter before persisting so secrets and
// signed URLs never reach the trail.  Errors are logged, never
// returned.
func (l *Logger) Log(ctx context.Context, fn, actor, action string, payload map[string]any) {
	if l == nil || l.db == nil {
		return
	}
	body, err := json.Marshal(Redact(payload))
	if err != nil {
		log.Printf("audit: marshal payload for %s: %v", fn, err)
		return
	}
	if actor == "" {
		actor = "anonymous"
	}
	const q = `INSERT INTO audit_log (fn, actor, action, payload) VALUES (?, ?, ?, ?)`
	if _, err := l.db.ExecContext(ctx, q, fn, actor, action, body); err != nil {
		log.Printf("audit: insert for %s failed: %v", fn, err)
	}
}
