// Package dispatch implements the Queue Dispatcher (spec §4.6): per poll
// cycle, per community and queue, it filters, sorts, and evaluates
// conditions against fetched items in two passes, then advances the
// community's watermark. Grounded on the teacher's
// internal/analyzer/registry.go RunAll sequencing (ordered walk over a
// registered set, short-circuiting on the first authoritative result).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/modwiki/automod/internal/actionlog"
	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/executor"
	"github.com/modwiki/automod/internal/item"
	"github.com/modwiki/automod/internal/matcher"
	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/source"
)

// UserLookupFactory builds a fresh matcher.UserLookup scoped to one item's
// evaluation within a community, since the teacher-grounded ClientLookup
// memoizes a single user profile fetch per instance (spec §4.4.1 fetches
// the author's profile once per item, not once per clause).
type UserLookupFactory func(ctx context.Context, community string) matcher.UserLookup

// Recorder receives poll-cycle observability events. Satisfied by
// *internal/metrics.Metrics; kept as an interface here so dispatch never
// imports the metrics package directly.
type Recorder interface {
	ItemEvaluated(community, queue string)
	ConditionMatched(community string)
	PollError(community, kind string)
	SetQueueDepth(community, queue string, depth int)
}

// Dispatcher walks one community's queues against its published Set.
type Dispatcher struct {
	Client   source.Client
	Log      actionlog.Store
	Executor *executor.Executor
	Users    UserLookupFactory
	Metrics  Recorder
}

// New constructs a Dispatcher.
func New(client source.Client, log actionlog.Store, exec *executor.Executor, users UserLookupFactory) *Dispatcher {
	return &Dispatcher{Client: client, Log: log, Executor: exec, Users: users}
}

// defaultReportLookback bounds how far back the report queue looks when no
// watermark is meaningful for it. It is a fixed 24 hours; the dispatcher
// does not read config.Config.ReportLookbackHours.
const defaultReportLookback = 24 * time.Hour

// RunQueue fetches and evaluates one community/queue pass, returning the
// new watermark to persist (spec §4.6 step "advances to the timestamp of
// the newest item seen", with the submission-approved exception).
func (d *Dispatcher) RunQueue(ctx context.Context, community ruleset.Community, queue source.Queue, set *ruleset.Set, after time.Time, limit int) (time.Time, error) {
	fetchAfter := after
	if queue == source.QueueReport && after.IsZero() {
		fetchAfter = time.Now().Add(-defaultReportLookback)
	}

	items, err := d.Client.FetchQueue(ctx, community.Name, queue, fetchAfter, limit)
	if err != nil {
		if d.Metrics != nil {
			d.Metrics.PollError(community.Name, "fetch")
		}
		return after, fmt.Errorf("dispatch: fetching %s/%s: %w", community.Name, queue, err)
	}
	if d.Metrics != nil {
		d.Metrics.SetQueueDepth(community.Name, string(queue), len(items))
	}

	conditions := set.ByQueue[string(queue)]
	if queue == source.QueueSpam {
		// Conditions pointers are shared across every queue index they
		// apply to (spec §5); flip the flag on a per-walk copy instead
		// of mutating the published set.
		spamConditions := make([]*condition.Condition, len(conditions))
		for i, c := range conditions {
			cc := *c
			cc.CheckShadowbanned = true
			spamConditions[i] = &cc
		}
		conditions = spamConditions
	}

	watermark := after

	for i := range items {
		it := &items[i]
		users := d.Users(ctx, community.Name)
		if d.Metrics != nil {
			d.Metrics.ItemEvaluated(community.Name, string(queue))
		}
		if err := d.evaluateItem(ctx, community.Name, conditions, it, users); err != nil {
			if errors.Is(err, source.ErrPermission) {
				// Abort the whole queue/community pass; the caller
				// triggers a top-level re-initialization (spec §5/§7).
				return watermark, source.ErrPermission
			}
			// Transient per-item errors are logged and counted here; the
			// walk continues and this item still advances the
			// watermark so it is not retried forever.
			slog.Default().Warn("evaluating item, skipping", "community", community.Name, "queue", string(queue), "item", it.Fullname, "error", err)
			if d.Metrics != nil {
				d.Metrics.PollError(community.Name, "evaluate")
			}
		}

		if queue == source.QueueSubmission && it.Approved {
			continue // approved submissions don't advance the submission watermark
		}
		if it.Created.After(watermark) {
			watermark = it.Created
		}
	}

	return watermark, nil
}

// evaluateItem filters conditions to this item's kind, reads the action
// log once, sorts by (priority desc, requests_required asc), and runs the
// two-pass removal-then-other evaluation of spec §4.6 steps 1-5.
func (d *Dispatcher) evaluateItem(ctx context.Context, community string, conditions []*condition.Condition, it *item.Item, users matcher.UserLookup) error {
	applicable := make([]*condition.Condition, 0, len(conditions))
	for _, c := range conditions {
		if c.AppliesToKind(kindOf(it)) {
			applicable = append(applicable, c)
		}
	}

	prior, err := d.Log.ForItem(it.Fullname)
	if err != nil {
		return fmt.Errorf("dispatch: reading action log: %w", err)
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		if applicable[i].Priority != applicable[j].Priority {
			return applicable[i].Priority > applicable[j].Priority
		}
		return applicable[i].RequestsRequired() < applicable[j].RequestsRequired()
	})

	removal, other := splitByRemovalClass(applicable)

	if err := d.evaluatePass(ctx, community, removal, it, prior, users, true); err != nil {
		return err
	}
	return d.evaluatePass(ctx, community, other, it, prior, users, false)
}

func splitByRemovalClass(conditions []*condition.Condition) (removal, other []*condition.Condition) {
	for _, c := range conditions {
		if c.Action == condition.ActionRemove || c.Action == condition.ActionSpam {
			removal = append(removal, c)
		} else {
			other = append(other, c)
		}
	}
	return removal, other
}

// evaluatePass walks conditions in order, applying the idempotence guard,
// matching, and executing. shortCircuit stops the pass on the first
// condition whose match succeeds (spec §4.6 step 4: removal pass only).
func (d *Dispatcher) evaluatePass(ctx context.Context, community string, conditions []*condition.Condition, it *item.Item, prior []actionlog.Entry, users matcher.UserLookup, shortCircuit bool) error {
	for _, c := range conditions {
		if skippedByIdempotence(c, it, prior) {
			continue
		}

		result, err := matcher.Evaluate(c, it, users)
		if err != nil {
			return fmt.Errorf("dispatch: evaluating condition: %w", err)
		}
		if !result.Matched {
			continue
		}
		if d.Metrics != nil {
			d.Metrics.ConditionMatched(community)
		}

		if err := d.Executor.Run(ctx, c, it, result, time.Now()); err != nil {
			return fmt.Errorf("dispatch: executing condition: %w", err)
		}

		if shortCircuit {
			return nil
		}
	}
	return nil
}

// skippedByIdempotence applies spec §4.5's guard rules ahead of the
// Matcher, so an already-satisfied condition never re-fetches a user
// profile or re-runs a regex for nothing.
func skippedByIdempotence(c *condition.Condition, it *item.Item, prior []actionlog.Entry) bool {
	switch c.Action {
	case condition.ActionRemove, condition.ActionSpam, condition.ActionApprove:
		actionName := string(c.Action)
		if c.Action == condition.ActionSpam {
			actionName = "remove"
		}
		for _, e := range prior {
			if e.Action == actionName {
				return true
			}
		}
		if (c.Action == condition.ActionRemove || c.Action == condition.ActionSpam) &&
			executor.AlreadyApprovedByHuman(it) {
			return true
		}
	}
	if c.Comment != "" || c.Modmail != "" || c.Message != "" {
		for _, e := range prior {
			if e.ConditionYAML == c.YAMLSource {
				return true
			}
		}
	}
	return false
}

func kindOf(it *item.Item) condition.Kind {
	if it.Kind == item.KindSubmission {
		return condition.KindSubmission
	}
	return condition.KindComment
}
