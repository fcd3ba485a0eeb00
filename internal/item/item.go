// Package item is the typed item abstraction called for in spec §9:
// rather than reading item properties by dynamic string name, every
// match target in the closed set gets a typed field, and the one place
// that must map a generic target name to a string uses an explicit
// switch (String, below).
package item

import (
	"time"

	"github.com/modwiki/automod/internal/pattern"
)

// Kind is the item's own kind, independent of a Condition's Type.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindComment    Kind = "comment"
)

// Media mirrors the oembed fields a link preview can carry.
type Media struct {
	AuthorName  string
	Title       string
	Description string
	AuthorURL   string
	Present     bool
}

// Item is one submission or comment fetched from a community's queues.
type Item struct {
	Kind Kind

	Created time.Time // used by the Queue Dispatcher to advance a community's per-queue watermark

	Fullname string // e.g. "t3_abc123" or "t1_def456"
	LinkID   string // submission fullname this item belongs to (self, for a submission)
	ParentID string // comment's immediate parent fullname; empty for submissions

	Author              string
	AuthorFlairText     string
	AuthorFlairCSSClass string
	AuthorIsModerator   bool

	// Submission-only fields.
	Title    string
	Domain   string
	URL      string
	IsSelf   bool
	SelfText string
	NSFW     bool
	Contest  bool
	Sticky   bool
	LinkFlairText  string
	LinkFlairClass string

	// Comment-only fields.
	Body string

	// Parent-submission context, populated for comments so link_title /
	// link_url rules can inspect the thread the comment lives in.
	ParentTitle string
	ParentURL   string
	ParentIsSelf bool
	ParentAuthor string

	Media Media

	NumReports int
	ApprovedBy string // non-empty if a human moderator (not this bot) approved the item
	Removed    bool
	Approved   bool

	Permalink string
	Subreddit string
}

// RawBody returns the text the Item Matcher extracts body length/pattern
// checks from: self-text for submissions, the comment body for comments.
func (it *Item) RawBody() string {
	if it.Kind == KindSubmission {
		return it.SelfText
	}
	return it.Body
}

// String implements the target→string mapping from spec §4.4. This is the
// one explicit switch spec §9 calls for; everywhere else in the engine
// operates on typed Item fields.
func (it *Item) String(t pattern.Target) string {
	switch t {
	case pattern.TargetUser:
		return it.Author
	case pattern.TargetLinkID:
		return stripFullnamePrefix(it.LinkID)
	case pattern.TargetParentCommentID:
		if hasPrefix(it.ParentID, "t1_") {
			return it.ParentID[3:]
		}
		return ""
	case pattern.TargetBody:
		return it.RawBody()
	case pattern.TargetTitle:
		if it.Kind == KindSubmission {
			return it.Title
		}
		return ""
	case pattern.TargetDomain:
		if it.Kind == KindSubmission {
			return it.Domain
		}
		return ""
	case pattern.TargetURL:
		if it.Kind == KindSubmission && !it.IsSelf {
			return it.URL
		}
		return ""
	case pattern.TargetMediaUser:
		return it.Media.AuthorName
	case pattern.TargetMediaTitle:
		return it.Media.Title
	case pattern.TargetMediaDescription:
		return it.Media.Description
	case pattern.TargetMediaAuthorURL:
		return it.Media.AuthorURL
	case pattern.TargetAuthorFlairText:
		return it.AuthorFlairText
	case pattern.TargetAuthorFlairClass:
		return it.AuthorFlairCSSClass
	case pattern.TargetLinkTitle:
		if it.Kind == KindSubmission {
			return it.Title
		}
		return it.ParentTitle
	case pattern.TargetLinkURL:
		if it.Kind == KindSubmission {
			if it.IsSelf {
				return ""
			}
			return it.URL
		}
		if it.ParentIsSelf {
			return ""
		}
		return it.ParentURL
	}
	return ""
}

func stripFullnamePrefix(s string) string {
	if len(s) > 3 && s[2] == '_' {
		return s[3:]
	}
	return s
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
