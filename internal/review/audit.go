package review

import "time"

// AuditEntry records one effective field edit. Entries are append-only and
// immutable; a no-op edit (stringified old == new) never creates one, so the
// log is a faithful record of effective changes only.
type AuditEntry struct {
	At       time.Time `json:"at"`
	Field    string    `json:"field"`
	OldValue string    `json:"old_value"`
	NewValue string    `json:"new_value"`
}
