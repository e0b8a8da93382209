// Package audit implements the append-only per-user decision trace.
//
// The trace is intentionally narrow: a store can append a record and read
// everything for one user, nothing else. Re-running the pipeline appends,
// it never rewrites, so earlier entries stay byte-identical across runs.
package audit

import (
	models "spendsense/database/models_pkg"
)

// TraceStore is the append-only trace contract. Implementations must
// preserve insertion order per user and never mutate existing records.
type TraceStore interface {
	Append(record *models.AuditRecord) error
	ReadAllForUser(userID string) ([]models.AuditRecord, error)
}
