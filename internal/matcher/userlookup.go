package matcher

import (
	"context"
	"errors"
	"time"

	"github.com/modwiki/automod/internal/cache"
	"github.com/modwiki/automod/internal/source"
)

// modTTL is the one-hour TTL spec §5 mandates for moderator/contributor
// list caches.
const modTTL = time.Hour

// ClientLookup adapts a source.Client plus a shared TTL cache.Cache into
// the matcher's UserLookup interface, fetching and caching a community's
// moderator/contributor lists and resolving a single user's profile
// per-clause-set rather than per-clause.
type ClientLookup struct {
	Client    source.Client
	Cache     cache.Cache
	Community string
	Ctx       context.Context

	profile    *source.User
	profileErr error
	fetched    bool
}

// NewClientLookup returns a ClientLookup scoped to one item's evaluation.
// A fresh instance is intended per item (it memoizes one user fetch), not
// shared across items.
func NewClientLookup(ctx context.Context, c source.Client, ch cache.Cache, community string) *ClientLookup {
	return &ClientLookup{Client: c, Cache: ch, Community: community, Ctx: ctx}
}

func (l *ClientLookup) profileFor(username string) (*source.User, error) {
	if l.fetched {
		return l.profile, l.profileErr
	}
	u, err := l.Client.FetchUser(l.Ctx, username)
	if errors.Is(err, source.ErrNotFound) {
		l.fetched = true
		l.profileErr = ErrUserNotFound
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	l.fetched = true
	l.profile = u
	return u, nil
}

func (l *ClientLookup) Rank(username string) (Rank, error) {
	mods, err := l.moderators()
	if err != nil {
		return RankUser, err
	}
	for _, m := range mods {
		if m == username {
			return RankModerator, nil
		}
	}
	contribs, err := l.contributors()
	if err != nil {
		return RankUser, err
	}
	for _, c := range contribs {
		if c == username {
			return RankContributor, nil
		}
	}
	return RankUser, nil
}

func (l *ClientLookup) moderators() ([]string, error) {
	key := cache.ModeratorsKey(l.Community)
	if v, ok := l.Cache.Get(key); ok {
		return v, nil
	}
	v, err := l.Client.FetchModerators(l.Ctx, l.Community)
	if err != nil {
		return nil, err
	}
	l.Cache.Set(key, v, modTTL)
	return v, nil
}

func (l *ClientLookup) contributors() ([]string, error) {
	key := cache.ContributorsKey(l.Community)
	if v, ok := l.Cache.Get(key); ok {
		return v, nil
	}
	v, err := l.Client.FetchContributors(l.Ctx, l.Community)
	if err != nil {
		return nil, err
	}
	l.Cache.Set(key, v, modTTL)
	return v, nil
}

func (l *ClientLookup) AccountAgeDays(username string) (int64, error) {
	u, err := l.profileFor(username)
	if err != nil {
		return 0, err
	}
	return u.AccountAgeDays(time.Now()), nil
}

func (l *ClientLookup) CombinedKarma(username string) (int64, error) {
	u, err := l.profileFor(username)
	if err != nil {
		return 0, err
	}
	return u.CombinedKarma(), nil
}

func (l *ClientLookup) CommentKarma(username string) (int64, error) {
	u, err := l.profileFor(username)
	if err != nil {
		return 0, err
	}
	return u.CommentKarma, nil
}

func (l *ClientLookup) LinkKarma(username string) (int64, error) {
	u, err := l.profileFor(username)
	if err != nil {
		return 0, err
	}
	return u.LinkKarma, nil
}

func (l *ClientLookup) IsGold(username string) (bool, error) {
	u, err := l.profileFor(username)
	if err != nil {
		return false, err
	}
	return u.IsGold, nil
}
