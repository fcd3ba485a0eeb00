// Package config loads process-wide startup configuration (spec §6):
// credentials, user-agent, owner account, standards-community name, wiki
// page names, report lookback hours, reports check period, and the
// last-inbox-message timestamp persisted back between runs. Adapted from
// the teacher's config.Load (a config-dir-under-home, defaults-filled-in
// shape); environment-variable loading is new, in the teacher's plain
// style (no viper/koanf anywhere in the corpus, so none here either).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultConfigDir  = ".automod"
	DefaultStateFile  = "state.json"
	DefaultStorageDir = "data"
)

// Config is the full set of process-wide startup configuration.
type Config struct {
	Username     string
	Password     string // app password / OAuth secret; never logged
	ClientID     string
	ClientSecret string
	UserAgent    string

	Owner              string // account authorized to send sleep/update_standards commands
	StandardsCommunity string
	StandardsWikiPage  string
	RuleWikiPage       string // per-community wiki page name holding the rule document

	ReportLookbackHours int
	ReportsCheckPeriod  time.Duration
	PollInterval        time.Duration

	BaseURL  string // item-source API root
	TokenURL string // OAuth2 token endpoint

	// RedisAddr, when set, backs the moderator/contributor TTL cache with
	// Redis instead of an in-process map, so multiple automod processes
	// polling the same communities share one cache.
	RedisAddr string

	MetricsListen string
	MetricsPath   string

	ConfigDir  string
	StateFile  string
	StorageDir string

	LastInboxMessage time.Time // persisted back after each inbox poll
}

// envLookup is overridable in tests.
var envLookup = os.LookupEnv

// Load reads configuration from environment variables, filling in
// defaults for anything not process-specific. Required credentials
// (AUTOMOD_USERNAME, AUTOMOD_PASSWORD, AUTOMOD_CLIENT_ID,
// AUTOMOD_CLIENT_SECRET) are the only fields whose absence is fatal.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolving home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		UserAgent:           envOr("AUTOMOD_USER_AGENT", "automod/1.0 (by /u/automoderator)"),
		Owner:               envOr("AUTOMOD_OWNER", ""),
		StandardsCommunity:  envOr("AUTOMOD_STANDARDS_COMMUNITY", "automodstandards"),
		StandardsWikiPage:   envOr("AUTOMOD_STANDARDS_WIKI_PAGE", "standards"),
		RuleWikiPage:        envOr("AUTOMOD_RULE_WIKI_PAGE", "automoderator"),
		ReportLookbackHours: envOrInt("AUTOMOD_REPORT_LOOKBACK_HOURS", 24),
		ReportsCheckPeriod:  envOrDuration("AUTOMOD_REPORTS_CHECK_PERIOD", 5*time.Minute),
		PollInterval:        envOrDuration("AUTOMOD_POLL_INTERVAL", 30*time.Second),
		BaseURL:             envOr("AUTOMOD_BASE_URL", "https://oauth.reddit.com"),
		TokenURL:            envOr("AUTOMOD_TOKEN_URL", "https://www.reddit.com/api/v1/access_token"),
		RedisAddr:           envOr("AUTOMOD_REDIS_ADDR", ""),
		MetricsListen:       envOr("AUTOMOD_METRICS_LISTEN", ":9090"),
		MetricsPath:         envOr("AUTOMOD_METRICS_PATH", "/metrics"),
		ConfigDir:           configDir,
		StateFile:           filepath.Join(configDir, DefaultStateFile),
		StorageDir:          filepath.Join(configDir, DefaultStorageDir),
	}

	state, err := LoadState(cfg.StateFile)
	if err != nil {
		return nil, err
	}
	cfg.LastInboxMessage = state.LastInboxMessage

	cfg.Username, _ = envLookup("AUTOMOD_USERNAME")
	cfg.Password, _ = envLookup("AUTOMOD_PASSWORD")
	cfg.ClientID, _ = envLookup("AUTOMOD_CLIENT_ID")
	cfg.ClientSecret, _ = envLookup("AUTOMOD_CLIENT_SECRET")

	var missing []string
	for _, pair := range []struct{ name, val string }{
		{"AUTOMOD_USERNAME", cfg.Username}, {"AUTOMOD_PASSWORD", cfg.Password},
		{"AUTOMOD_CLIENT_ID", cfg.ClientID}, {"AUTOMOD_CLIENT_SECRET", cfg.ClientSecret},
	} {
		if pair.val == "" {
			missing = append(missing, pair.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := envLookup(key); ok && v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v, ok := envLookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDuration(key string, def time.Duration) time.Duration {
	if v, ok := envLookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0o700)
	}
	return nil
}
