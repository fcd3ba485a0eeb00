// Package source defines the item-source adapter: the external
// collaborator spec §1 and §6 leave abstract (credential management, the
// HTTP client, the wiki fetcher). The core only ever depends on the
// Client interface; HTTPClient is the one concrete implementation this
// repository ships.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/modwiki/automod/internal/item"
)

// Queue names one of the four item streams a community exposes.
type Queue string

const (
	QueueSubmission Queue = "submission"
	QueueComment    Queue = "comment"
	QueueSpam       Queue = "spam"
	QueueReport     Queue = "report"
)

// ErrPermission is returned when the upstream site responds 403: the bot
// has lost moderator permission on the community. Spec §7: abort the
// current queue/community and trigger a top-level re-initialization.
var ErrPermission = errors.New("source: permission denied (403)")

// ErrNotFound is returned when the upstream site responds 404, e.g. on a
// deleted or shadowbanned user. Spec §7: this maps to "user condition
// does not apply", not a propagated error.
var ErrNotFound = errors.New("source: not found (404)")

// User is the subset of account data user_conditions clauses read.
type User struct {
	Name         string
	CreatedUTC   time.Time
	LinkKarma    int64
	CommentKarma int64
	IsGold       bool
	Shadowbanned bool
}

// AccountAgeDays returns whole days elapsed since the account's creation,
// relative to now.
func (u User) AccountAgeDays(now time.Time) int64 {
	return int64(now.Sub(u.CreatedUTC).Hours() / 24)
}

// CombinedKarma sums link and comment karma, per spec §4.4.1.
func (u User) CombinedKarma() int64 {
	return u.LinkKarma + u.CommentKarma
}

// ActionKind is a remote effect the Action Executor can request.
type ActionKind string

const (
	ActionRemove        ActionKind = "remove"
	ActionApprove       ActionKind = "approve"
	ActionSpam          ActionKind = "spam"
	ActionReport        ActionKind = "report"
	ActionComment       ActionKind = "comment"
	ActionDistinguish   ActionKind = "distinguish"
	ActionModmail       ActionKind = "modmail"
	ActionMessage       ActionKind = "message"
	ActionLinkFlair     ActionKind = "link_flair"
	ActionUserFlair     ActionKind = "user_flair"
	ActionSetNSFW       ActionKind = "set_nsfw"
	ActionSetContest    ActionKind = "set_contest"
	ActionSetSticky     ActionKind = "set_sticky"
	ActionMarkRead      ActionKind = "mark_read"
	ActionAcceptInvite  ActionKind = "accept_invite"
)

// Message is one inbox item: a private message, a community invitation,
// or a username mention. Spec §6's "Inbox commands".
type Message struct {
	Fullname  string
	Author    string
	Subject   string
	Body      string
	CreatedUTC time.Time
	WasComment bool // true for a comment-reply/mention, false for a PM
	// Subreddit is populated for invitation messages ("invite to moderate
	// /r/<name>"), the community the invite names.
	Subreddit string
}

// ActionRequest is one remote effect to perform against an item (or, for
// modmail/message, against a community/user outside the item's own
// identity).
type ActionRequest struct {
	Kind      ActionKind
	Community string
	ItemFullname string
	Target    string // username for message, comment id for a reply target
	Text      string
	Subject   string
	FlairText string
	FlairClass string
	ReportReason string
}

// Client is the abstract item-source adapter. Credential handling, retry
// policy, and wire format are all behind this interface; the engine core
// never imports an HTTP package directly.
type Client interface {
	// FetchQueue returns items newer than `after` in a community's queue,
	// oldest first, up to limit items.
	FetchQueue(ctx context.Context, community string, q Queue, after time.Time, limit int) ([]item.Item, error)

	// FetchUser returns a user's public profile. Returns ErrNotFound on a
	// 404 (deleted/shadowbanned account) and ErrPermission on a 403.
	FetchUser(ctx context.Context, username string) (*User, error)

	// FetchModerators returns a community's moderator usernames.
	FetchModerators(ctx context.Context, community string) ([]string, error)

	// FetchContributors (approved submitters) returns a community's
	// contributor usernames.
	FetchContributors(ctx context.Context, community string) ([]string, error)

	// FetchWikiPage returns the raw content of a community wiki page.
	FetchWikiPage(ctx context.Context, community, page string) (string, error)

	// FetchInbox returns unread inbox messages (private messages,
	// invitations, mentions) newer than after.
	FetchInbox(ctx context.Context, after time.Time) ([]Message, error)

	// Do performs one action request.
	Do(ctx context.Context, req ActionRequest) error
}
