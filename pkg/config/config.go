package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds the key sets other packages query at runtime,
// populated during startup after merging file and env.
type RuntimeConfig struct {
	BackendKeys  map[string]struct{}
	FrontendKeys map[string]struct{}
	AdminKeys    map[string]struct{}
	SigningKeys  map[string]struct{}
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

func copyKeys(src map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	if src == nil {
		return out
	}
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

// GetBackendKeys returns a copy of configured backend API keys.
func GetBackendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.BackendKeys)
}

// GetFrontendKeys returns a copy of configured frontend API keys.
func GetFrontendKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.FrontendKeys)
}

// GetAdminKeys returns a copy of configured admin API keys.
func GetAdminKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.AdminKeys)
}

// GetSigningKeys returns a copy of configured HMAC signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return map[string]struct{}{}
	}
	return copyKeys(runtimeCfg.SigningKeys)
}

// ParseCommandFlags parses the standard server flags and reports which
// were set explicitly so they can win over file and env values.
func ParseCommandFlags() (addr, db, cfgPath string, setFlags map[string]bool) {
	addrFlag := flag.String("addr", "", "listen address (host:port)")
	dbFlag := flag.String("db", "", "pebble database path")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, set
}

// ResolveConfigPath picks the config file path: explicit flag first, then
// FILLSESSION_CONFIG, then the conventional default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if p := os.Getenv("FILLSESSION_CONFIG"); p != "" {
		return p
	}
	return "fillsession.yaml"
}

// LoadEffective loads the YAML config (when the file exists) and applies
// FILLSESSION_* env overrides. It returns the merged config and whether
// any env override was used.
func LoadEffective(path string) (*Config, bool, error) {
	cfg := &Config{}
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, false, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, false, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	envUsed := false
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
			envUsed = true
		}
	}
	setStr(&cfg.Server.Address, "FILLSESSION_ADDR")
	if v := os.Getenv("FILLSESSION_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
			envUsed = true
		}
	}
	setStr(&cfg.Server.Transport, "FILLSESSION_TRANSPORT")
	setStr(&cfg.Storage.DBPath, "FILLSESSION_DB_PATH")
	setStr(&cfg.Storage.UploadsDir, "FILLSESSION_UPLOADS_DIR")
	setStr(&cfg.Storage.FinalsDir, "FILLSESSION_FINALS_DIR")
	setStr(&cfg.Provider.Name, "FILLSESSION_PROVIDER")
	setStr(&cfg.Provider.Model, "FILLSESSION_MODEL")
	setStr(&cfg.Provider.APIKey, "FILLSESSION_PROVIDER_API_KEY")
	setStr(&cfg.Provider.BaseURL, "FILLSESSION_PROVIDER_BASE_URL")
	setStr(&cfg.Logging.Level, "FILLSESSION_LOG_LEVEL")
	if v := os.Getenv("FILLSESSION_BACKEND_KEYS"); v != "" {
		cfg.Security.APIKeys.Backend = splitList(v)
		envUsed = true
	}
	if v := os.Getenv("FILLSESSION_FRONTEND_KEYS"); v != "" {
		cfg.Security.APIKeys.Frontend = splitList(v)
		envUsed = true
	}
	if v := os.Getenv("FILLSESSION_ADMIN_KEYS"); v != "" {
		cfg.Security.APIKeys.Admin = splitList(v)
		envUsed = true
	}
	if v := os.Getenv("FILLSESSION_SIGNING_KEYS"); v != "" {
		cfg.Security.SigningKeys = splitList(v)
		envUsed = true
	}

	applyDefaults(cfg)
	return cfg, envUsed, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "nethttp"
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "./data/db"
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = "./data/uploads"
	}
	if cfg.Storage.FinalsDir == "" {
		cfg.Storage.FinalsDir = "./data/finals"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "anthropic"
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = 60
	}
	if cfg.Quota.DefaultPlan == "" {
		cfg.Quota.DefaultPlan = "free"
	}
	if cfg.Quota.Plans == nil {
		cfg.Quota.Plans = map[string]int64{"free": 100000, "pro": 2000000, "unlimited": 0}
	}
	if cfg.Quota.EstimatedCallCost <= 0 {
		cfg.Quota.EstimatedCallCost = 2000
	}
	if cfg.Reaper.Cron == "" {
		cfg.Reaper.Cron = "0 * * * *"
	}
	if cfg.Reaper.IdleTimeout == "" {
		cfg.Reaper.IdleTimeout = "2h"
	}
	if cfg.Reaper.Retention == "" {
		cfg.Reaper.Retention = "30d"
	}
}

// BuildRuntime converts the merged config into the runtime key sets.
func BuildRuntime(cfg *Config) *RuntimeConfig {
	toSet := func(keys []string) map[string]struct{} {
		out := map[string]struct{}{}
		for _, k := range keys {
			if k != "" {
				out[k] = struct{}{}
			}
		}
		return out
	}
	return &RuntimeConfig{
		BackendKeys:  toSet(cfg.Security.APIKeys.Backend),
		FrontendKeys: toSet(cfg.Security.APIKeys.Frontend),
		AdminKeys:    toSet(cfg.Security.APIKeys.Admin),
		SigningKeys:  toSet(cfg.Security.SigningKeys),
	}
}
