// Package pattern compiles YAML match-key/value fragments into executable
// regular expressions. It is the lowest layer of the condition evaluation
// engine: it knows nothing about items, queues, or actions, only about
// turning user-authored match specifications into compiled patterns.
package pattern

// Target identifies one of the closed set of fields a match-key can name.
type Target string

const (
	TargetLinkID             Target = "link_id"
	TargetUser               Target = "user"
	TargetTitle              Target = "title"
	TargetDomain             Target = "domain"
	TargetURL                Target = "url"
	TargetBody               Target = "body"
	TargetMediaUser          Target = "media_user"
	TargetMediaTitle         Target = "media_title"
	TargetMediaDescription   Target = "media_description"
	TargetMediaAuthorURL     Target = "media_author_url"
	TargetParentCommentID    Target = "parent_comment_id"
	TargetAuthorFlairText    Target = "author_flair_text"
	TargetAuthorFlairClass   Target = "author_flair_css_class"
	TargetLinkTitle          Target = "link_title"
	TargetLinkURL            Target = "link_url"
)

// validTargets is the closed set a match-key's targets must belong to.
var validTargets = map[Target]bool{
	TargetLinkID:           true,
	TargetUser:             true,
	TargetTitle:            true,
	TargetDomain:           true,
	TargetURL:              true,
	TargetBody:             true,
	TargetMediaUser:        true,
	TargetMediaTitle:       true,
	TargetMediaDescription: true,
	TargetMediaAuthorURL:   true,
	TargetParentCommentID:  true,
	TargetAuthorFlairText:  true,
	TargetAuthorFlairClass: true,
	TargetLinkTitle:        true,
	TargetLinkURL:          true,
}

// IsValidTarget reports whether t belongs to the closed target set.
func IsValidTarget(t Target) bool {
	return validTargets[t]
}

// submissionOnlyTargets are targets that only ever appear on submissions;
// a match-key naming only these infers Condition.Type == "submission".
var submissionOnlyTargets = map[Target]bool{
	TargetTitle:      true,
	TargetDomain:     true,
	TargetURL:        true,
	TargetMediaUser:  true,
	TargetMediaTitle: true,
	TargetMediaDescription: true,
	TargetMediaAuthorURL:   true,
}

// IsSubmissionOnly reports whether t can only appear on submissions.
func IsSubmissionOnly(t Target) bool {
	return submissionOnlyTargets[t]
}

// commentOnlyTargets are targets that only ever appear on comments.
var commentOnlyTargets = map[Target]bool{
	TargetParentCommentID: true,
}

// IsCommentOnly reports whether t can only appear on comments.
func IsCommentOnly(t Target) bool {
	return commentOnlyTargets[t]
}

// MatchType is one of the six match-type templates from spec §4.1.
type MatchType string

const (
	MatchFullExact    MatchType = "full-exact"
	MatchFullText     MatchType = "full-text"
	MatchIncludes     MatchType = "includes"
	MatchIncludesWord MatchType = "includes-word"
	MatchStartsWith   MatchType = "starts-with"
	MatchEndsWith     MatchType = "ends-with"
)

// defaultMatchType is the per-target default match-type applied when a
// match-key carries no explicit match-type token.
var defaultMatchType = map[Target]MatchType{
	TargetLinkID:           MatchFullExact,
	TargetParentCommentID:  MatchFullExact,
	TargetUser:             MatchFullExact,
	TargetDomain:           MatchFullExact,
	TargetMediaUser:        MatchFullExact,
	TargetAuthorFlairText:  MatchFullExact,
	TargetAuthorFlairClass: MatchFullExact,

	TargetURL:            MatchIncludes,
	TargetMediaAuthorURL: MatchIncludes,
	TargetLinkURL:        MatchIncludes,
}

// DefaultMatchType returns the match-type a target uses absent an explicit
// match-type token. Every target not listed explicitly defaults to
// includes-word.
func DefaultMatchType(t Target) MatchType {
	if mt, ok := defaultMatchType[t]; ok {
		return mt
	}
	return MatchIncludesWord
}

// templates maps a match-type to the regex template applied around the
// alternation group V built from the match-key's values.
var templates = map[MatchType]string{
	MatchFullExact:    `^V$`,
	MatchFullText:     `^\W*V\W*$`,
	MatchIncludes:     `V`,
	MatchIncludesWord: `(?:^|\W|\b)V(?:$|\W|\b)`,
	MatchStartsWith:   `^V`,
	MatchEndsWith:     `V$`,
}
