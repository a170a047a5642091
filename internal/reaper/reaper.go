// Package reaper runs scheduled maintenance over stored sessions: idle
// active sessions are abandoned and terminal sessions past the retention
// window are purged.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"fillsession/pkg/config"
	"fillsession/pkg/logger"
	"fillsession/pkg/session"
)

// Start launches the reaper scheduler if enabled. Returns a cancel func;
// a no-op cancel when the reaper is disabled.
func Start(ctx context.Context, cfg config.ReaperConfig, st *session.Store) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("reaper_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid reaper cron expression: %s", cfg.Cron)
	}
	idle, err := config.ParsePeriod(cfg.IdleTimeout)
	if err != nil {
		return nil, err
	}
	retention, err := config.ParsePeriod(cfg.Retention)
	if err != nil {
		return nil, err
	}

	logger.Info("reaper_enabled", "cron", cronExpr, "idle_timeout", cfg.IdleTimeout, "retention", cfg.Retention)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, idle, retention, st)
	return cancel, nil
}

// runScheduler computes the next cron tick and sleeps until it is due.
func runScheduler(ctx context.Context, cronExpr string, idle, retention time.Duration, st *session.Store) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("reaper_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("reaper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("reaper_scheduler_stopping")
			return
		}

		runOnce(idle, retention, st)
	}
}

// RunOnce triggers a single maintenance pass; exposed for admin triggers.
func RunOnce(idle, retention time.Duration, st *session.Store) {
	runOnce(idle, retention, st)
}

func runOnce(idle, retention time.Duration, st *session.Store) {
	start := time.Now()
	var reaped, purged int
	if idle > 0 {
		n, err := st.ReapIdle(idle)
		if err != nil {
			logger.Error("reap_idle_failed", "error", err)
		}
		reaped = n
	}
	if retention > 0 {
		n, err := st.PurgeTerminal(retention)
		if err != nil {
			logger.Error("purge_terminal_failed", "error", err)
		}
		purged = n
	}
	logger.Info("reaper_run_done", "reaped", reaped, "purged", purged,
		"elapsed_ms", time.Since(start).Milliseconds())
}
