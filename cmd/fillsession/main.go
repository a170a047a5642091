package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"fillsession/internal/reaper"
	"fillsession/pkg/api"
	"fillsession/pkg/api/handlers"
	"fillsession/pkg/auth"
	"fillsession/pkg/config"
	"fillsession/pkg/docstore"
	"fillsession/pkg/httpx"
	"fillsession/pkg/logger"
	"fillsession/pkg/provider"
	"fillsession/pkg/quota"
	"fillsession/pkg/session"
	"fillsession/pkg/shutdown"
	"fillsession/pkg/store"
	"fillsession/pkg/telemetry"
	"fillsession/pkg/validation"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		shutdown.Abort("failed to load config", err)
	}

	logger.Init(cfg.Logging.Level)
	logger.Info("starting", "version", version, "commit", commit, "built", buildDate,
		"config", cfgPath, "env_overrides", envUsed)

	// explicit flags win over config/env
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := cfg.Storage.DBPath
	if setFlags["db"] {
		dbPath = dbVal
	}

	maxDoc, err := config.ParseSize(cfg.Limits.MaxDocumentSize)
	if err != nil {
		shutdown.Abort("invalid max_document_size", err)
	}
	maxMsg, err := config.ParseSize(cfg.Limits.MaxMessageSize)
	if err != nil {
		shutdown.Abort("invalid max_message_size", err)
	}
	validation.SetLimits(validation.Limits{MaxDocumentBytes: maxDoc, MaxMessageBytes: maxMsg})

	config.SetRuntime(config.BuildRuntime(cfg))

	if err := store.Open(dbPath); err != nil {
		shutdown.Abort("failed to open pebble at "+dbPath, err)
	}
	defer func() { _ = store.Close() }()

	docs, err := docstore.NewFSStore(cfg.Storage.UploadsDir, cfg.Storage.FinalsDir)
	if err != nil {
		shutdown.Abort("failed to prepare document dirs", err)
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		shutdown.Abort("failed to configure completion provider", err)
	}
	logger.Info("provider_configured", "provider", completer.Name(), "model", cfg.Provider.Model)

	ents := quota.NewPlanEntitlements(cfg.Quota.Plans, cfg.Quota.Owners, cfg.Quota.DefaultPlan, store.MonthlyUsage)
	accountant := quota.NewAccountant(ents, cfg.Quota.EstimatedCallCost)

	sessions := session.NewStore(completer, accountant, docs,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second)

	bare := api.Handler(sessions)
	handlers.SetDocStore(docs)

	rl := auth.RateLimitByOwner(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst)
	apiChain := telemetry.Middleware(auth.ResolveRole(auth.RequireSignedOwner(rl(bare))))

	root := http.NewServeMux()
	root.Handle("/healthz", bare)
	root.Handle("/v1/", apiChain)
	root.Handle("/metrics", promhttp.Handler())
	// Swagger UI at /docs and the OpenAPI spec at /openapi.yaml
	root.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	root.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	stopReaper, err := reaper.Start(ctx, cfg.Reaper, sessions)
	if err != nil {
		shutdown.Abort("failed to start reaper", err)
	}
	defer stopReaper()

	err = httpx.Serve(ctx, httpx.Options{
		Transport: cfg.Server.Transport,
		Addr:      addr,
		CertFile:  cfg.Server.TLS.CertFile,
		KeyFile:   cfg.Server.TLS.KeyFile,
	}, root)
	if err != nil {
		logger.Error("server_error", "error", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown_complete")
	logger.Sync()
}

func buildCompleter(cfg *config.Config) (provider.Completer, error) {
	switch cfg.Provider.Name {
	case "openai":
		return provider.NewOpenAICompleter(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Model), nil
	case "", "anthropic":
		return provider.NewAnthropicCompleter(cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}
