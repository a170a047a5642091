package config

import "fmt"

// Config is the main configuration struct, loaded from YAML and
// overridden by FILLSESSION_* env vars and command flags (flags win).
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Provider ProviderConfig `yaml:"provider"`
	Quota    QuotaConfig    `yaml:"quota"`
	Security SecurityConfig `yaml:"security"`
	Limits   LimitsConfig   `yaml:"limits"`
	Reaper   ReaperConfig   `yaml:"reaper"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// Transport selects the listener front: "nethttp" (default) or
	// "fasthttp".
	Transport string    `yaml:"transport"`
	TLS       TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type StorageConfig struct {
	DBPath     string `yaml:"db_path"`
	UploadsDir string `yaml:"uploads_dir"`
	FinalsDir  string `yaml:"finals_dir"`
}

type ProviderConfig struct {
	// Name is "anthropic" or "openai" (the latter covers any
	// OpenAI-compatible endpoint via base_url).
	Name           string `yaml:"name"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxTokens      int64  `yaml:"max_tokens"`
}

type QuotaConfig struct {
	// Plans maps plan name -> monthly token limit; 0 means unlimited.
	Plans map[string]int64 `yaml:"plans"`
	// Owners pins specific owner ids to a plan.
	Owners      map[string]string `yaml:"owners"`
	DefaultPlan string            `yaml:"default_plan"`
	// EstimatedCallCost is the assumed token cost of the next provider
	// call when applying the quota decision rule.
	EstimatedCallCost int64 `yaml:"estimated_call_cost"`
}

type SecurityConfig struct {
	APIKeys struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
	SigningKeys []string `yaml:"signing_keys"`
	RateLimit   struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

type LimitsConfig struct {
	// Humanized byte sizes, e.g. "256KB".
	MaxDocumentSize string `yaml:"max_document_size"`
	MaxMessageSize  string `yaml:"max_message_size"`
}

type ReaperConfig struct {
	Enabled bool `yaml:"enabled"`
	// Cron schedule for reaper runs; default hourly.
	Cron string `yaml:"cron"`
	// IdleTimeout before an active session is abandoned, e.g. "2h".
	IdleTimeout string `yaml:"idle_timeout"`
	// Retention for terminal sessions before purge, e.g. "30d".
	Retention string `yaml:"retention"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}
