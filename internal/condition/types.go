// Package condition holds the compiled, immutable Condition model: the
// result of validating and pattern-compiling one YAML rule fragment.
package condition

import "github.com/modwiki/automod/internal/pattern"

// Kind is the item kind a Condition applies to.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindComment    Kind = "comment"
	KindBoth       Kind = "both"
)

// Action is the primary remote effect a Condition performs.
type Action string

const (
	ActionNone    Action = "none"
	ActionRemove  Action = "remove"
	ActionSpam    Action = "spam"
	ActionApprove Action = "approve"
	ActionReport  Action = "report"
)

// Satisfy controls how multiple user_conditions clauses combine.
type Satisfy string

const (
	SatisfyAll Satisfy = "all"
	SatisfyAny Satisfy = "any"
)

// MatchEntry is one compiled match-key, kept in the document's insertion
// order so the Item Matcher can deterministically pick the "winning"
// match for placeholder expansion and so yaml_source round-trips produce
// the same ordering.
type MatchEntry struct {
	Key     pattern.Key
	Regex   *pattern.Compiled
}

// UserClauseOp is the comparison operator in a user_conditions clause.
type UserClauseOp string

const (
	OpEq UserClauseOp = "="
	OpLt UserClauseOp = "<"
	OpGt UserClauseOp = ">"
)

// UserAttr names a user_conditions attribute.
type UserAttr string

const (
	AttrAccountAge   UserAttr = "account_age"
	AttrCombinedKarma UserAttr = "combined_karma"
	AttrCommentKarma UserAttr = "comment_karma"
	AttrIsGold       UserAttr = "is_gold"
	AttrLinkKarma    UserAttr = "link_karma"
	AttrRank         UserAttr = "rank"
)

// UserClause is one parsed user_conditions entry: an attribute, an
// operator, and a literal to compare against.
type UserClause struct {
	Attr    UserAttr
	Op      UserClauseOp
	IntVal  int64  // valid when Attr != AttrRank and Attr != AttrIsGold
	BoolVal bool   // valid when Attr == AttrIsGold
	RankVal string // "user" | "contributor" | "moderator", valid when Attr == AttrRank
}

// Condition is the compiled, immutable decision unit produced by the Rule-Set
// Loader from one YAML rule fragment. See spec §3.
type Condition struct {
	YAMLSource string // canonical serialization of the originating fragment; idempotence key

	Type     Kind
	Priority int

	ReportsThreshold    *int
	IsReply             *bool
	AuthorIsSubmitter   *bool

	IgnoreBlockquotes bool
	BodyMinLength     *int
	BodyMaxLength     *int

	Matches      []MatchEntry
	MustSatisfy  Satisfy
	UserClauses  []UserClause

	Action       Action
	ReportReason string
	Report       string // non-empty implies an additional report regardless of Action
	Comment      string
	Modmail      string
	ModmailSubject string
	Message      string
	MessageSubject string

	LinkFlairText    string
	LinkFlairClass   string
	UserFlairText    string
	UserFlairClass   string
	OverwriteUserFlair bool

	SetOptions []string // subset of {nsfw, contest, sticky}

	ModeratorsExempt  bool // default true
	CheckShadowbanned bool // set by the Queue Dispatcher at the top of a spam-queue walk
}

// RequestsRequired is the derived secondary sort key from spec §3: one
// remote round-trip per independent effect, plus one extra for a posted
// comment (distinguishing it is a second call), plus one per thread
// option toggled.
func (c *Condition) RequestsRequired() int {
	n := 0
	if c.Action == ActionRemove || c.Action == ActionSpam || c.Action == ActionApprove {
		n++
	}
	if c.Action == ActionReport || c.Report != "" {
		n++
	}
	if c.Comment != "" {
		n += 2 // post + distinguish
	}
	if c.Modmail != "" {
		n++
	}
	if c.Message != "" {
		n++
	}
	if c.LinkFlairText != "" || c.LinkFlairClass != "" {
		n++
	}
	if c.UserFlairText != "" || c.UserFlairClass != "" {
		n++
	}
	if len(c.UserClauses) > 0 {
		n++ // one user fetch covers all clauses
	}
	n += len(c.SetOptions)
	return n
}

// AppliesToKind reports whether this condition's Type is compatible with
// the given item kind.
func (c *Condition) AppliesToKind(k Kind) bool {
	return c.Type == KindBoth || c.Type == k
}
