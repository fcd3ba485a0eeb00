// Package executor implements the Action Executor (spec §4.5): the
// ordered, idempotent application of a matched Condition's remote effects.
// Grounded on the teacher's internal/policy/engine.go's buildExplanation
// step (record what happened) paired with internal/logger.go's
// AuditLogger.Log (append one row per effect).
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modwiki/automod/internal/actionlog"
	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/item"
	"github.com/modwiki/automod/internal/logger"
	"github.com/modwiki/automod/internal/matcher"
	"github.com/modwiki/automod/internal/source"
	"github.com/modwiki/automod/internal/template"
)

// Disclaimer is appended to every posted comment. Configurable in a fuller
// deployment; a fixed constant here keeps the executor's comment step
// self-contained.
const Disclaimer = "\n\n*I am a bot, and this action was performed automatically. Please [contact the moderators of this subreddit](/message/compose/) if you have any questions or concerns.*"

// ShadowbanChecker reports whether a username is currently shadowbanned.
// Only consulted under the spam-queue's check_shadowbanned flag.
type ShadowbanChecker interface {
	IsShadowbanned(ctx context.Context, username string) (bool, error)
}

// Recorder receives one event per remote action actually taken. Satisfied
// by *internal/metrics.Metrics.
type Recorder interface {
	ActionTaken(community, action string)
}

// Executor performs a matched condition's effects against one item,
// enforcing the ordering and idempotence rules of spec §4.5.
type Executor struct {
	Client    source.Client
	Log       actionlog.Store
	Shadowban ShadowbanChecker
	// OpLog records a line per effect for operator visibility (spec §7's
	// "automod log" command reads this, separately from the idempotence
	// Action Log). Nil is fine; logging is then skipped.
	OpLog   *logger.Logger
	Metrics Recorder
}

// New constructs an Executor.
func New(client source.Client, log actionlog.Store, sb ShadowbanChecker) *Executor {
	return &Executor{Client: client, Log: log, Shadowban: sb}
}

// Run applies c's effects to it, having already matched via result. now is
// injected for deterministic log timestamps in tests.
func (e *Executor) Run(ctx context.Context, c *condition.Condition, it *item.Item, result matcher.Result, now time.Time) error {
	prior, err := e.Log.ForItem(it.Fullname)
	if err != nil {
		return fmt.Errorf("executor: reading action log: %w", err)
	}

	tmplCtx := template.Context{Item: it, Groups: result.WinningGroups, Permalink: it.Permalink}

	if err := e.runShadowbanGuard(ctx, c, it, result); err != nil {
		if err == errSuppressed {
			e.logOp(it, "approve", true, "shadowbanned author")
			return nil
		}
		return err
	}

	if err := e.runPrimaryAction(ctx, c, it, prior, now); err != nil {
		return err
	}
	if err := e.runReport(ctx, c, it, prior, tmplCtx, now); err != nil {
		return err
	}
	if it.Kind == item.KindSubmission {
		if err := e.runThreadOptions(ctx, c, it, prior, now); err != nil {
			return err
		}
		if err := e.runLinkFlair(ctx, c, it, tmplCtx, prior, now); err != nil {
			return err
		}
	}
	if err := e.runUserFlair(ctx, c, it, tmplCtx, prior, now); err != nil {
		return err
	}
	if err := e.runComment(ctx, c, it, tmplCtx, prior, now); err != nil {
		return err
	}
	if err := e.runModmail(ctx, c, it, tmplCtx, prior, now); err != nil {
		return err
	}
	if err := e.runMessage(ctx, c, it, tmplCtx, prior, now); err != nil {
		return err
	}
	return nil
}

var errSuppressed = fmt.Errorf("executor: suppressed")

// runShadowbanGuard implements spec §4.5 step 1.
func (e *Executor) runShadowbanGuard(ctx context.Context, c *condition.Condition, it *item.Item, result matcher.Result) error {
	if c.Action != condition.ActionApprove || !c.CheckShadowbanned || result.UsernameMatch || e.Shadowban == nil {
		return nil
	}
	banned, err := e.Shadowban.IsShadowbanned(ctx, it.Author)
	if err != nil {
		return fmt.Errorf("executor: checking shadowban: %w", err)
	}
	if banned {
		return errSuppressed
	}
	return nil
}

// AlreadyApprovedByHuman reports whether it carries a prior approval from
// a moderator other than this bot (spec §4.5: "approved by a moderator
// other than this bot").
func AlreadyApprovedByHuman(it *item.Item) bool {
	return it.Approved && it.ApprovedBy != "" && !strings.EqualFold(it.ApprovedBy, "automoderator")
}

// hasActionName reports whether any condition has already recorded
// actionName for this item, per spec §4.5's idempotence rule for the
// primary remove/spam/approve action: it is a property of the item, not
// of any one condition.
func hasActionName(prior []actionlog.Entry, actionName string) bool {
	for _, e := range prior {
		if e.Action == actionName {
			return true
		}
	}
	return false
}

// runPrimaryAction implements spec §4.5 step 2.
func (e *Executor) runPrimaryAction(ctx context.Context, c *condition.Condition, it *item.Item, prior []actionlog.Entry, now time.Time) error {
	var actionName string
	var kind source.ActionKind

	switch c.Action {
	case condition.ActionRemove:
		actionName, kind = "remove", source.ActionRemove
	case condition.ActionSpam:
		actionName, kind = "remove", source.ActionSpam
	case condition.ActionApprove:
		actionName, kind = "approve", source.ActionApprove
	default:
		return nil
	}

	if hasActionName(prior, actionName) {
		return nil
	}
	if (kind == source.ActionRemove || kind == source.ActionSpam) && AlreadyApprovedByHuman(it) {
		return nil
	}

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: kind, ItemFullname: it.Fullname}); err != nil {
		return fmt.Errorf("executor: %s: %w", actionName, err)
	}
	return e.appendLog(it, c.YAMLSource, actionName, now)
}

// runReport implements spec §4.5 step 3.
func (e *Executor) runReport(ctx context.Context, c *condition.Condition, it *item.Item, prior []actionlog.Entry, tmplCtx template.Context, now time.Time) error {
	if c.Action != condition.ActionReport && c.Report == "" {
		return nil
	}
	if actionlog.HasAction(prior, c.YAMLSource, "report") {
		return nil
	}

	reason := c.Report
	if reason == "" {
		reason = c.ReportReason
	}
	if reason != "" {
		reason = template.TruncateSubject(template.Expand(reason, tmplCtx))
	}

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionReport, ItemFullname: it.Fullname, ReportReason: reason}); err != nil {
		return fmt.Errorf("executor: report: %w", err)
	}
	return e.appendLog(it, c.YAMLSource, "report", now)
}

// runThreadOptions implements spec §4.5 step 4.
func (e *Executor) runThreadOptions(ctx context.Context, c *condition.Condition, it *item.Item, prior []actionlog.Entry, now time.Time) error {
	for _, opt := range c.SetOptions {
		var actionName string
		var kind source.ActionKind
		switch strings.ToLower(opt) {
		case "nsfw":
			if it.NSFW {
				continue
			}
			actionName, kind = "set_nsfw", source.ActionSetNSFW
		case "contest":
			actionName, kind = "set_contest", source.ActionSetContest
		case "sticky":
			actionName, kind = "set_sticky", source.ActionSetSticky
		default:
			continue
		}
		if actionlog.HasAction(prior, c.YAMLSource, actionName) {
			continue
		}
		if err := e.Client.Do(ctx, source.ActionRequest{Kind: kind, ItemFullname: it.Fullname}); err != nil {
			return fmt.Errorf("executor: %s: %w", actionName, err)
		}
		if err := e.appendLog(it, c.YAMLSource, actionName, now); err != nil {
			return err
		}
	}
	return nil
}

// runLinkFlair implements spec §4.5 step 5 (link half).
func (e *Executor) runLinkFlair(ctx context.Context, c *condition.Condition, it *item.Item, tmplCtx template.Context, prior []actionlog.Entry, now time.Time) error {
	if c.LinkFlairText == "" && c.LinkFlairClass == "" {
		return nil
	}
	if it.LinkFlairText != "" || it.LinkFlairClass != "" {
		return nil
	}
	if actionlog.HasAction(prior, c.YAMLSource, "link_flair") {
		return nil
	}

	text := template.Expand(c.LinkFlairText, tmplCtx)
	class := strings.ToLower(template.Expand(c.LinkFlairClass, tmplCtx))

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionLinkFlair, ItemFullname: it.Fullname, FlairText: text, FlairClass: class}); err != nil {
		return fmt.Errorf("executor: link_flair: %w", err)
	}
	return e.appendLog(it, c.YAMLSource, "link_flair", now)
}

// runUserFlair implements spec §4.5 step 5 (user half).
func (e *Executor) runUserFlair(ctx context.Context, c *condition.Condition, it *item.Item, tmplCtx template.Context, prior []actionlog.Entry, now time.Time) error {
	if c.UserFlairText == "" && c.UserFlairClass == "" {
		return nil
	}
	if it.AuthorFlairText != "" && !c.OverwriteUserFlair {
		return nil
	}
	if actionlog.HasAction(prior, c.YAMLSource, "user_flair") {
		return nil
	}

	text := template.Expand(c.UserFlairText, tmplCtx)
	class := strings.ToLower(template.Expand(c.UserFlairClass, tmplCtx))

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionUserFlair, ItemFullname: it.Fullname, Target: it.Author, FlairText: text, FlairClass: class}); err != nil {
		return fmt.Errorf("executor: user_flair: %w", err)
	}
	return e.appendLog(it, c.YAMLSource, "user_flair", now)
}

// runComment implements spec §4.5 step 6: post, then distinguish as a
// separate remote call.
func (e *Executor) runComment(ctx context.Context, c *condition.Condition, it *item.Item, tmplCtx template.Context, prior []actionlog.Entry, now time.Time) error {
	if c.Comment == "" {
		return nil
	}
	if actionlog.HasAction(prior, c.YAMLSource, "comment") {
		return nil
	}

	body := template.TruncateBody(template.Expand(c.Comment, tmplCtx) + Disclaimer)

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionComment, ItemFullname: it.Fullname, Text: body}); err != nil {
		return fmt.Errorf("executor: comment: %w", err)
	}
	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionDistinguish, ItemFullname: it.Fullname}); err != nil {
		return fmt.Errorf("executor: distinguish: %w", err)
	}
	return e.appendLog(it, c.YAMLSource, "comment", now)
}

// runModmail implements spec §4.5 step 7.
func (e *Executor) runModmail(ctx context.Context, c *condition.Condition, it *item.Item, tmplCtx template.Context, prior []actionlog.Entry, now time.Time) error {
	if c.Modmail == "" {
		return nil
	}
	if actionlog.HasAction(prior, c.YAMLSource, "modmail") {
		return nil
	}

	body := template.TruncateBody(template.EnsurePermalink(template.Expand(c.Modmail, tmplCtx), it.Permalink))
	subject := template.TruncateSubject(template.Expand(c.ModmailSubject, tmplCtx))

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionModmail, Community: it.Subreddit, Subject: subject, Text: body}); err != nil {
		return fmt.Errorf("executor: modmail: %w", err)
	}
	return e.appendLog(it, c.YAMLSource, "modmail", now)
}

// runMessage implements spec §4.5 step 8.
func (e *Executor) runMessage(ctx context.Context, c *condition.Condition, it *item.Item, tmplCtx template.Context, prior []actionlog.Entry, now time.Time) error {
	if c.Message == "" {
		return nil
	}
	if it.Author == "" {
		return nil
	}
	if actionlog.HasAction(prior, c.YAMLSource, "message") {
		return nil
	}

	body := template.TruncateBody(template.EnsurePermalink(template.Expand(c.Message, tmplCtx), it.Permalink))
	subject := template.TruncateSubject(template.Expand(c.MessageSubject, tmplCtx))

	if err := e.Client.Do(ctx, source.ActionRequest{Kind: source.ActionMessage, Target: it.Author, Subject: subject, Text: body}); err != nil {
		return fmt.Errorf("executor: message: %w", err)
	}
	return e.appendLog(it, c.YAMLSource, "message", now)
}

func (e *Executor) appendLog(it *item.Item, yamlSource, action string, now time.Time) error {
	if err := e.Log.Append(actionlog.NewEntry(it.Fullname, yamlSource, action, now)); err != nil {
		return fmt.Errorf("executor: appending log row for %s: %w", action, err)
	}
	if e.OpLog != nil {
		_ = e.OpLog.Log(logger.Event{Community: it.Subreddit, ItemFullname: it.Fullname, Action: action})
	}
	if e.Metrics != nil {
		e.Metrics.ActionTaken(it.Subreddit, action)
	}
	return nil
}

// logOp writes an operator-visible line for an action taken (or skipped)
// against it. Failures to write the operational log are not fatal to the
// run; they are silently discarded.
func (e *Executor) logOp(it *item.Item, action string, skipped bool, skipReason string) {
	if e.OpLog == nil {
		return
	}
	_ = e.OpLog.Log(logger.Event{
		Community:    it.Subreddit,
		ItemFullname: it.Fullname,
		Action:       action,
		Skipped:      skipped,
		SkipReason:   skipReason,
	})
}
