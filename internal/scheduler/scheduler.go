// Package scheduler implements the polling loop (spec §5): a single
// cooperative walk over moderated communities and their queues, with the
// HTTP-fetch and rule-evaluation stages pipelined across communities using
// a bounded worker pool. Grounded on the teacher's internal/cli/run.go
// (the top-level retry-with-backoff loop shape) and
// internal/analyzer/registry.go (an ordered walk that tolerates one
// member's failure without aborting the rest).
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/modwiki/automod/internal/dispatch"
	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/source"
)

// Queues lists the four streams walked every cycle, in the order spec §5
// describes them.
var Queues = []source.Queue{source.QueueSubmission, source.QueueComment, source.QueueSpam, source.QueueReport}

// SetProvider resolves a community's currently published rule Set. The
// scheduler never compiles rules itself; internal/ruleset owns that.
type SetProvider func(community string) (*ruleset.Set, bool)

// Persister writes back a community's advanced watermark after a queue
// pass. Implementations typically wrap a ruleset.Store.
type Persister interface {
	SaveWatermark(community, queue string, at time.Time) error
}

// PermissionHandler re-discovers the moderated-community list after a 403,
// per spec §5's "triggers a top-level re-initialization".
type PermissionHandler func(ctx context.Context) ([]ruleset.Community, error)

// Recorder times whole poll cycles. Satisfied by *internal/metrics.Metrics.
type Recorder interface {
	ObservePollCycle(seconds float64)
}

// Scheduler drives one poll cycle across every moderated community.
type Scheduler struct {
	Dispatcher *dispatch.Dispatcher
	Sets       SetProvider
	Store      Persister
	OnPermissionError PermissionHandler
	Logger     *slog.Logger
	Metrics    Recorder

	// QueueItemLimit bounds how many items one queue fetch returns per
	// community per cycle.
	QueueItemLimit int

	// MaxConcurrency bounds how many communities are fetched/evaluated
	// concurrently within one cycle (sourcegraph/conc's pool, spec §5's
	// permitted pipelining of "HTTP fetches and rule evaluation as
	// independent stages" across communities).
	MaxConcurrency int
}

// RunCycle walks every community in communities, queue by queue. Ordering
// within one community's rule set is always serial (RunQueue evaluates
// items and conditions in the deterministic order §4.6 requires); only the
// across-community fetch/evaluate work is pipelined.
func (s *Scheduler) RunCycle(ctx context.Context, communities []ruleset.Community) {
	start := time.Now()
	if s.Metrics != nil {
		defer func() { s.Metrics.ObservePollCycle(time.Since(start).Seconds()) }()
	}

	limit := s.QueueItemLimit
	if limit <= 0 {
		limit = 100
	}
	concurrency := s.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	p := pool.New().WithMaxGoroutines(concurrency).WithContext(ctx)

	for _, c := range communities {
		c := c
		p.Go(func(ctx context.Context) error {
			return s.runCommunity(ctx, c, limit)
		})
	}

	if err := p.Wait(); err != nil && errors.Is(err, source.ErrPermission) {
		if s.OnPermissionError != nil {
			if _, reErr := s.OnPermissionError(ctx); reErr != nil && s.Logger != nil {
				s.Logger.Error("re-initializing moderated community list", "error", reErr)
			}
		}
	}
}

func (s *Scheduler) runCommunity(ctx context.Context, community ruleset.Community, limit int) error {
	if !community.Enabled {
		return nil
	}
	set, ok := s.Sets(community.Name)
	if !ok {
		return nil // no published rule set yet; nothing to evaluate
	}

	for _, q := range Queues {
		after := watermarkFor(community, q)
		wm, err := s.Dispatcher.RunQueue(ctx, community, q, set, after, limit)
		if err != nil {
			if errors.Is(err, source.ErrPermission) {
				return err
			}
			if s.Logger != nil {
				s.Logger.Warn("queue pass failed, continuing", "community", community.Name, "queue", q, "error", err)
			}
			continue
		}
		if s.Store != nil {
			if err := s.Store.SaveWatermark(community.Name, string(q), wm); err != nil && s.Logger != nil {
				s.Logger.Warn("failed to persist watermark", "community", community.Name, "queue", q, "error", err)
			}
		}
	}
	return nil
}

func watermarkFor(c ruleset.Community, q source.Queue) time.Time {
	switch q {
	case source.QueueSubmission:
		return c.LastSubmission
	case source.QueueComment:
		return c.LastComment
	case source.QueueSpam:
		return c.LastSpam
	default:
		return time.Time{}
	}
}
