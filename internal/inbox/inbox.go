// Package inbox implements the Inbox command processor (spec §6): reading
// unread messages to the bot account and dispatching update/
// update_standards/sleep/invitation commands. Grounded on the teacher's
// internal/cli/hook.go shape (parse one input, auto-detect which of a
// few known forms it is, dispatch to a handler, fail safe on anything
// unrecognized).
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/source"
)

// RefreshCommunity re-loads and republishes a community's rule set from
// its wiki page, on behalf of sender.
type RefreshCommunity func(ctx context.Context, community, sender string) error

// RefreshStandards re-loads and republishes the Standards Cache from the
// standards community's wiki page.
type RefreshStandards func(ctx context.Context, sender string) error

// Sleeper pauses the caller. Overridable in tests.
type Sleeper func(time.Duration)

// Processor reads and acts on the bot account's unread messages.
type Processor struct {
	Client             source.Client
	Store              ruleset.Store
	Owner              string
	StandardsCommunity string

	RefreshCommunity RefreshCommunity
	RefreshStandards RefreshStandards
	Sleep            Sleeper
	Logger           *slog.Logger
}

// Result summarizes one Process call, for the "automod inbox" CLI command
// and for tests.
type Result struct {
	Processed      int
	Updated        []string
	StandardsUsed  bool
	InvitesAccepted []string
	NewCursor      time.Time
}

// Process fetches unread messages newer than after and acts on each,
// returning the new cursor to persist (spec §6's "last-inbox-message
// timestamp, persisted back"). after is exclusive; unread messages are
// marked read and, for invitations, accepted, regardless of whether the
// sender was authorized to issue the command they attempted.
func (p *Processor) Process(ctx context.Context, after time.Time) (Result, error) {
	messages, err := p.Client.FetchInbox(ctx, after)
	if err != nil {
		return Result{}, fmt.Errorf("inbox: fetching messages: %w", err)
	}

	result := Result{NewCursor: after}
	sleepAfter := false

	for _, m := range messages {
		if m.CreatedUTC.After(result.NewCursor) {
			result.NewCursor = m.CreatedUTC
		}
		result.Processed++

		if m.WasComment {
			p.markRead(ctx, m)
			continue
		}

		switch {
		case isInvitation(m):
			community := communityFromInvitation(m)
			if community != "" {
				if err := p.acceptInvite(ctx, community); err != nil {
					p.warn("accepting moderator invite", community, err)
				} else {
					result.InvitesAccepted = append(result.InvitesAccepted, community)
				}
			}

		case strings.EqualFold(strings.TrimSpace(m.Body), "update"):
			community := communityFromSubject(m.Subject)
			if p.authorized(ctx, community, m.Author) {
				if p.RefreshCommunity != nil {
					if err := p.RefreshCommunity(ctx, community, m.Author); err != nil {
						p.warn("refreshing rule set", community, err)
					} else {
						result.Updated = append(result.Updated, community)
					}
				}
			}

		case strings.EqualFold(strings.TrimSpace(m.Body), "update_standards"):
			community := communityFromSubject(m.Subject)
			if strings.EqualFold(community, p.StandardsCommunity) && p.authorized(ctx, community, m.Author) {
				if p.RefreshStandards != nil {
					if err := p.RefreshStandards(ctx, m.Author); err != nil {
						p.warn("refreshing standards", community, err)
					} else {
						result.StandardsUsed = true
					}
				}
			}

		case strings.EqualFold(strings.TrimSpace(m.Subject), "sleep") && strings.EqualFold(m.Author, p.Owner):
			sleepAfter = true
		}

		p.markRead(ctx, m)
	}

	if sleepAfter && p.Sleep != nil {
		p.Sleep(10 * time.Second)
	}

	return result, nil
}

func (p *Processor) markRead(ctx context.Context, m source.Message) {
	if err := p.Client.Do(ctx, source.ActionRequest{Kind: source.ActionMarkRead, ItemFullname: m.Fullname}); err != nil && p.Logger != nil {
		p.Logger.Warn("failed to mark inbox message read", "fullname", m.Fullname, "error", err)
	}
}

func (p *Processor) acceptInvite(ctx context.Context, community string) error {
	if err := p.Client.Do(ctx, source.ActionRequest{Kind: source.ActionAcceptInvite, Community: community}); err != nil {
		return err
	}
	c, ok, err := p.Store.GetCommunity(community)
	if err != nil {
		return fmt.Errorf("looking up community: %w", err)
	}
	if !ok {
		c = ruleset.Community{Name: community}
	}
	c.Enabled = true
	return p.Store.PutCommunity(c)
}

// authorized reports whether sender is the configured owner or a current
// moderator of community.
func (p *Processor) authorized(ctx context.Context, community, sender string) bool {
	if community == "" || sender == "" {
		return false
	}
	if strings.EqualFold(sender, p.Owner) {
		return true
	}
	mods, err := p.Client.FetchModerators(ctx, community)
	if err != nil {
		return false
	}
	for _, mod := range mods {
		if strings.EqualFold(mod, sender) {
			return true
		}
	}
	return false
}

func (p *Processor) warn(action, community string, err error) {
	if p.Logger != nil {
		p.Logger.Warn(action+" failed", "community", community, "error", err)
	}
}

// isInvitation detects a moderator-invite message, grounded on the
// original implementation's subject-prefix check.
func isInvitation(m source.Message) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m.Subject)), "invitation to moderate /r/")
}

func communityFromInvitation(m source.Message) string {
	if m.Subreddit != "" {
		return strings.ToLower(m.Subreddit)
	}
	return communityFromSubject(m.Subject)
}

// communityFromSubject extracts a community name from a message subject
// that is either the bare name or a string containing a "/r/name" path.
func communityFromSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if idx := strings.LastIndex(subject, "/"); idx != -1 {
		subject = subject[idx+1:]
	}
	return strings.ToLower(strings.TrimSpace(subject))
}
