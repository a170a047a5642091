package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"1024", 1024},
		{"256KB", 256000},
		{"1 MiB", 1048576},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if err != nil {
			t.Fatalf("ParseSize(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if _, err := ParseSize("lots"); err == nil {
		t.Fatalf("garbage size accepted")
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"90m", 90 * time.Minute},
		{"2h", 2 * time.Hour},
		{"30d", 30 * 24 * time.Hour},
		{"1.5d", 36 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.in)
		if err != nil {
			t.Fatalf("ParsePeriod(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePeriod(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParsePeriod("soon"); err == nil {
		t.Fatalf("garbage period accepted")
	}
}

func TestLoadEffective_FileEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fillsession.yaml")
	yaml := `
server:
  address: 127.0.0.1
  port: 9090
provider:
  name: openai
  model: gpt-4o-mini
quota:
  default_plan: pro
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FILLSESSION_MODEL", "gpt-4.1")
	t.Setenv("FILLSESSION_SIGNING_KEYS", "k1, k2,")

	cfg, envUsed, err := LoadEffective(path)
	if err != nil {
		t.Fatalf("LoadEffective failed: %v", err)
	}
	if !envUsed {
		t.Fatalf("env overrides not detected")
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.Provider.Name != "openai" || cfg.Provider.Model != "gpt-4.1" {
		t.Fatalf("env must win over file: %+v", cfg.Provider)
	}
	if len(cfg.Security.SigningKeys) != 2 {
		t.Fatalf("signing keys = %v", cfg.Security.SigningKeys)
	}
	// defaults fill the gaps
	if cfg.Server.Transport != "nethttp" {
		t.Fatalf("default transport = %q", cfg.Server.Transport)
	}
	if cfg.Quota.DefaultPlan != "pro" {
		t.Fatalf("file default_plan overridden: %q", cfg.Quota.DefaultPlan)
	}
	if cfg.Quota.Plans["free"] != 100000 {
		t.Fatalf("default plans missing: %v", cfg.Quota.Plans)
	}
	if cfg.Reaper.Cron != "0 * * * *" || cfg.Reaper.Retention != "30d" {
		t.Fatalf("reaper defaults missing: %+v", cfg.Reaper)
	}
}

func TestLoadEffective_MissingFileIsFine(t *testing.T) {
	cfg, _, err := LoadEffective(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Provider.Name != "anthropic" {
		t.Fatalf("defaults not applied: %+v", cfg.Provider)
	}
}

func TestBuildRuntimeAndAccessors(t *testing.T) {
	cfg := &Config{}
	cfg.Security.APIKeys.Backend = []string{"bk", ""}
	cfg.Security.APIKeys.Frontend = []string{"fk"}
	cfg.Security.SigningKeys = []string{"sign"}
	SetRuntime(BuildRuntime(cfg))
	t.Cleanup(func() { SetRuntime(&RuntimeConfig{}) })

	if _, ok := GetBackendKeys()["bk"]; !ok {
		t.Fatalf("backend key missing")
	}
	if len(GetBackendKeys()) != 1 {
		t.Fatalf("empty keys must be dropped")
	}
	if _, ok := GetFrontendKeys()["fk"]; !ok {
		t.Fatalf("frontend key missing")
	}
	if _, ok := GetSigningKeys()["sign"]; !ok {
		t.Fatalf("signing key missing")
	}
	if len(GetAdminKeys()) != 0 {
		t.Fatalf("unexpected admin keys")
	}
}
