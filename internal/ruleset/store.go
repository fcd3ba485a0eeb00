// Package ruleset implements the Rule-Set Loader (spec §4.7) and the
// persistent community/standard-condition store (spec §6). Grounded on the
// teacher's internal/policy/loader.go (YAML document loading) and
// internal/policy/pack.go (atomic replace-on-publish of a community's
// compiled rule list).
package ruleset

import (
	"time"

	"github.com/modwiki/automod/internal/condition"
)

// Community is one moderated community's persisted state: spec §6's
// `communities(name, enabled, last_submission, last_spam, last_comment,
// exclude_banned_modqueue, conditions_yaml)` row.
type Community struct {
	Name                  string
	Enabled               bool
	LastSubmission        time.Time
	LastSpam              time.Time
	LastComment           time.Time
	ExcludeBannedModqueue bool
	ConditionsYAML        string
}

// Set is one community's atomically-published compiled rule set, keyed by
// the queue it applies to after the per-queue condition filter of §4.6 has
// been applied. Generation increments on every successful publish so
// callers can detect a stale reference without locking.
type Set struct {
	Generation int
	ByQueue    map[string][]*condition.Condition
	All        []*condition.Condition
}

// Store is the persistence interface behind `communities` and
// `standard_conditions`. Nothing caches Store reads (internal/cache holds
// only moderator/contributor lists); Store is the durable source of truth.
type Store interface {
	GetCommunity(name string) (Community, bool, error)
	PutCommunity(c Community) error
	ListCommunities() ([]Community, error)

	GetStandardsYAML() (string, error)
	PutStandardsYAML(yaml string) error
}
