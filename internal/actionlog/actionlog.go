// Package actionlog implements the append-only action log (spec §3, §6):
// the idempotence ledger consulted before every external effect and
// written after it succeeds. Grounded on the teacher's internal/logger's
// AuditLogger (mutex-guarded append, size-based rotation), repurposed here
// from a redacted audit trail into a structured idempotence index keyed by
// (item_fullname, condition_yaml, action).
package actionlog

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one action-log row: spec §3's
// `{item_fullname, condition_yaml, action, timestamp}`.
type Entry struct {
	ID           string    `json:"id"`
	ItemFullname string    `json:"item_fullname"`
	ConditionYAML string   `json:"condition_yaml"`
	Action       string    `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEntry stamps a fresh row with a UUID row ID, for log compaction and
// dedup tooling that needs a stable key independent of content.
func NewEntry(itemFullname, conditionYAML, action string, at time.Time) Entry {
	return Entry{
		ID:            uuid.NewString(),
		ItemFullname:  itemFullname,
		ConditionYAML: conditionYAML,
		Action:        action,
		Timestamp:     at,
	}
}

// Store is the action log's persistence interface. Appends are the hot
// path (one per distinct action performed); lookups are read once per item
// per queue pass (spec §4.6 step 2: "read the action log for this item
// once").
type Store interface {
	// Append writes one row. Called after the corresponding external
	// effect has already succeeded — never before.
	Append(e Entry) error

	// ForItem returns every row recorded for itemFullname, in write order.
	ForItem(itemFullname string) ([]Entry, error)
}

// HasAction reports whether action was already recorded for this exact
// condition on this item — the idempotence check spec §4.5 requires
// before performing a remote effect again.
func HasAction(entries []Entry, conditionYAML, action string) bool {
	for _, e := range entries {
		if e.ConditionYAML == conditionYAML && e.Action == action {
			return true
		}
	}
	return false
}
