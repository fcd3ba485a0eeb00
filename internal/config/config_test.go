package config

import "testing"

func TestLoadMissingCredentialsErrors(t *testing.T) {
	orig := envLookup
	defer func() { envLookup = orig }()
	envLookup = func(string) (string, bool) { return "", false }

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when required credentials are absent")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	orig := envLookup
	defer func() { envLookup = orig }()
	vals := map[string]string{
		"AUTOMOD_USERNAME": "bot", "AUTOMOD_PASSWORD": "pw",
		"AUTOMOD_CLIENT_ID": "id", "AUTOMOD_CLIENT_SECRET": "secret",
	}
	envLookup = func(k string) (string, bool) { v, ok := vals[k]; return v, ok }

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StandardsCommunity != "automodstandards" {
		t.Errorf("StandardsCommunity = %q, want default", cfg.StandardsCommunity)
	}
	if cfg.ReportLookbackHours != 24 {
		t.Errorf("ReportLookbackHours = %d, want default 24", cfg.ReportLookbackHours)
	}
}
