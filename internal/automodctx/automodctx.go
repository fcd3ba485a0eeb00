// Package automodctx holds the process-wide state spec §9's "dynamic
// attribute access / process-wide caches" design note resolves to a
// single struct for: the Standards Cache, the moderator/contributor TTL
// cache, and the inbox read cursor. Constructed by the CLI's app setup
// (internal/cli) each time a command runs and passed explicitly to the
// collaborators that need it, rather than reached for through
// package-level globals.
package automodctx

import (
	"context"
	"time"

	"github.com/modwiki/automod/internal/cache"
	"github.com/modwiki/automod/internal/matcher"
	"github.com/modwiki/automod/internal/source"
	"github.com/modwiki/automod/internal/standards"
)

// Context bundles the state that must survive across poll cycles, as
// opposed to the per-item/per-condition values threaded through function
// arguments.
type Context struct {
	Standards *standards.Cache
	UserCache cache.Cache
	Client    source.Client

	// LastInboxMessage is the cursor inbox.Processor.Process advances and
	// config.SaveState persists back between runs.
	LastInboxMessage time.Time
}

// New constructs a Context with a fresh Standards Cache and the given
// TTL cache/client.
func New(client source.Client, userCache cache.Cache) *Context {
	return &Context{
		Standards: standards.New(),
		UserCache: userCache,
		Client:    client,
	}
}

// UserLookup builds a matcher.UserLookup scoped to one item's evaluation
// within community, satisfying dispatch.UserLookupFactory.
func (c *Context) UserLookup(ctx context.Context, community string) matcher.UserLookup {
	return matcher.NewClientLookup(ctx, c.Client, c.UserCache, community)
}
