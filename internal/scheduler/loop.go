package scheduler

import (
	"context"
	"time"

	"github.com/modwiki/automod/internal/ruleset"
)

// CommunityLister returns the current moderated-community list, read
// fresh at the top of every cycle so newly-accepted invitations (spec §6)
// take effect without a restart.
type CommunityLister func(ctx context.Context) ([]ruleset.Community, error)

// RunForever drives RunCycle at interval until ctx is cancelled. Spec §5:
// "Unhandled failures at the outermost loop ... retry the loop after
// backoff" — a panic recovered here and a failed community listing both
// back off; RunCycle itself already tolerates per-community and
// per-queue failures without propagating them this far.
func (s *Scheduler) RunForever(ctx context.Context, list CommunityLister, interval time.Duration) {
	backoff := time.Second
	const maxBackoff = 2 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					if s.Logger != nil {
						s.Logger.Error("poll cycle panicked, backing off", "panic", r, "backoff", backoff)
					}
					time.Sleep(backoff)
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
			}()

			communities, err := list(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Error("failed to list moderated communities, backing off", "error", err, "backoff", backoff)
				}
				time.Sleep(backoff)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				return
			}
			backoff = time.Second

			s.RunCycle(ctx, communities)
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
