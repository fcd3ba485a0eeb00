package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modwiki/automod/internal/actionlog"
	"github.com/modwiki/automod/internal/automodctx"
	"github.com/modwiki/automod/internal/cache"
	"github.com/modwiki/automod/internal/config"
	"github.com/modwiki/automod/internal/dispatch"
	"github.com/modwiki/automod/internal/executor"
	"github.com/modwiki/automod/internal/inbox"
	"github.com/modwiki/automod/internal/logger"
	"github.com/modwiki/automod/internal/matcher"
	"github.com/modwiki/automod/internal/metrics"
	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/scheduler"
	"github.com/modwiki/automod/internal/source"
)

// app bundles every collaborator a CLI command needs, built fresh from
// config.Load() each time a command runs — the teacher's run.go does the
// same (config, policy, engine, all constructed inline in RunE rather
// than held across invocations).
type app struct {
	Config    *config.Config
	Client    source.Client
	Store     ruleset.Store
	Log       actionlog.Store
	OpLog     *logger.Logger
	Metrics   *metrics.Metrics
	Context   *automodctx.Context
	Loader    *ruleset.Loader
	Scheduler *scheduler.Scheduler
	Inbox     *inbox.Processor

	mu   sync.Mutex
	sets map[string]*ruleset.Set
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	tokenSource := source.NewTokenSource(cfg.ClientID, cfg.ClientSecret, cfg.Username, cfg.Password, cfg.TokenURL)
	client := source.NewHTTPClient(cfg.BaseURL, cfg.UserAgent, tokenSource.Token)

	store, err := ruleset.NewJSONLStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("opening community store: %w", err)
	}

	logStore, err := actionlog.NewJSONLStore(filepath.Join(cfg.StorageDir, "actionlog.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("opening action log: %w", err)
	}

	opLog, err := logger.New(filepath.Join(cfg.StorageDir, "operations.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("opening operational log: %w", err)
	}

	var userCache cache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		userCache = cache.NewRedisCache(rdb, context.Background())
	} else {
		userCache = cache.NewMemCache()
	}

	actx := automodctx.New(client, userCache)

	sc, err := store.GetStandardsYAML()
	if err != nil {
		return nil, fmt.Errorf("reading stored standards: %w", err)
	}
	if sc != "" {
		if _, err := actx.Standards.Refresh(sc); err != nil {
			return nil, fmt.Errorf("parsing stored standards: %w", err)
		}
	}

	a := &app{
		Config:  cfg,
		Client:  client,
		Store:   store,
		Log:     logStore,
		OpLog:   opLog,
		Metrics: metrics.New("automod"),
		Context: actx,
		Loader:  ruleset.NewLoader(actx.Standards),
		sets:    map[string]*ruleset.Set{},
	}

	exec := executor.New(client, logStore, a)
	exec.OpLog = opLog
	exec.Metrics = a.Metrics

	d := dispatch.New(client, logStore, exec, func(ctx context.Context, community string) matcher.UserLookup {
		return actx.UserLookup(ctx, community)
	})
	d.Metrics = a.Metrics

	a.Scheduler = &scheduler.Scheduler{
		Dispatcher:     d,
		Sets:           a.lookupSet,
		Store:          a,
		OnPermissionError: a.enabledCommunities,
		Logger:         slog.Default(),
		Metrics:        a.Metrics,
		QueueItemLimit: 100,
		MaxConcurrency: 4,
	}

	a.Inbox = &inbox.Processor{
		Client:             client,
		Store:              store,
		Owner:              cfg.Owner,
		StandardsCommunity: cfg.StandardsCommunity,
		RefreshCommunity:   a.refreshCommunity,
		RefreshStandards:   a.refreshStandards,
		Sleep:              time.Sleep,
		Logger:             slog.Default(),
	}

	return a, nil
}

// IsShadowbanned satisfies executor.ShadowbanChecker, fulfilling the
// dependency run.go wires and the teacher's own convention of passing
// the app struct itself where a narrow collaborator interface is all a
// callee needs.
func (a *app) IsShadowbanned(ctx context.Context, username string) (bool, error) {
	u, err := a.Client.FetchUser(ctx, username)
	if errors.Is(err, source.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return u.Shadowbanned, nil
}

// SaveWatermark satisfies scheduler.Persister.
func (a *app) SaveWatermark(community, queue string, at time.Time) error {
	c, ok, err := a.Store.GetCommunity(community)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cli: unknown community %q", community)
	}
	switch queue {
	case "submission":
		c.LastSubmission = at
	case "comment":
		c.LastComment = at
	case "spam":
		c.LastSpam = at
	}
	return a.Store.PutCommunity(c)
}

func (a *app) lookupSet(community string) (*ruleset.Set, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sets[community]
	return s, ok
}

func (a *app) enabledCommunities(ctx context.Context) ([]ruleset.Community, error) {
	all, err := a.Store.ListCommunities()
	if err != nil {
		return nil, err
	}
	var enabled []ruleset.Community
	for _, c := range all {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled, nil
}

// refreshCommunity fetches a community's rule wiki page, compiles it, and
// publishes the result, in response to an "update" inbox command.
func (a *app) refreshCommunity(ctx context.Context, community, sender string) error {
	raw, err := a.Client.FetchWikiPage(ctx, community, a.Config.RuleWikiPage)
	if err != nil {
		return fmt.Errorf("fetching rule wiki page: %w", err)
	}
	conditions, err := a.Loader.Load(raw)
	if err != nil {
		return fmt.Errorf("compiling rule document: %w", err)
	}

	a.mu.Lock()
	generation := 1
	if prev, ok := a.sets[community]; ok {
		generation = prev.Generation + 1
	}
	a.sets[community] = ruleset.Build(conditions, generation)
	a.mu.Unlock()

	c, ok, err := a.Store.GetCommunity(community)
	if err != nil {
		return err
	}
	if !ok {
		c = ruleset.Community{Name: community, Enabled: true}
	}
	c.ConditionsYAML = raw
	return a.Store.PutCommunity(c)
}

// refreshStandards fetches and republishes the Standards Cache, in
// response to an "update_standards" inbox command, then recompiles every
// community's rule set so a changed fragment takes effect immediately.
func (a *app) refreshStandards(ctx context.Context, sender string) error {
	raw, err := a.Client.FetchWikiPage(ctx, a.Config.StandardsCommunity, a.Config.StandardsWikiPage)
	if err != nil {
		return fmt.Errorf("fetching standards wiki page: %w", err)
	}
	changed, err := a.Loader.LoadStandards(raw)
	if err != nil {
		return fmt.Errorf("compiling standards document: %w", err)
	}
	if err := a.Store.PutStandardsYAML(raw); err != nil {
		return err
	}
	if !changed {
		return nil
	}

	all, err := a.Store.ListCommunities()
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.ConditionsYAML == "" {
			continue
		}
		if err := a.refreshCommunity(ctx, c.Name, sender); err != nil {
			slog.Default().Warn("recompiling after standards update", "community", c.Name, "error", err)
		}
	}
	return nil
}

func ensureStorageDir(cfg *config.Config) error {
	return os.MkdirAll(cfg.StorageDir, 0o700)
}
