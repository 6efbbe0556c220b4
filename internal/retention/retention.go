// Package retention schedules and runs the purge of archived conversations
// that have aged past the configured period.
package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"arenachat/pkg/config"
	"arenachat/pkg/logger"
	"arenachat/pkg/models"
	"arenachat/pkg/state"
	"arenachat/pkg/store"
)

var storedEff *config.EffectiveConfigResult

// SetEffectiveConfig stores the effective config so admin triggers (and
// tests) can invoke retention runs on-demand.
func SetEffectiveConfig(eff config.EffectiveConfigResult) {
	storedEff = &eff
}

// RunImmediate triggers a single retention run using the stored effective
// config. Returns an error if no effective config was registered.
func RunImmediate() error {
	if storedEff == nil {
		return fmt.Errorf("no effective config registered for retention run")
	}
	if state.PathsVar.Retention == "" {
		return fmt.Errorf("state paths not initialized")
	}
	return runOnce(context.Background(), *storedEff, state.PathsVar.Retention)
}

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, eff config.EffectiveConfigResult) (context.CancelFunc, error) {
	ret := eff.Config.Retention

	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	// lock and run artifacts live in a stable folder under the data path:
	// <DBPath>/state/retention.
	retentionPath := state.PathsVar.Retention
	if err := os.MkdirAll(retentionPath, 0o700); err != nil {
		logger.Error("retention_path_create_failed", "path", retentionPath, "error", err)
		return nil, err
	}

	// map empty cron to default daily @02:00
	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", ret.Period.Duration().String(), "path", retentionPath)
	ctx2, cancel := context.WithCancel(ctx)

	go runScheduler(ctx2, eff, retentionPath, cronExpr)

	logger.Info("retention_scheduler_started", "path", retentionPath)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time. This yields sharp scheduling and
// supports full cron syntax.
func runScheduler(ctx context.Context, eff config.EffectiveConfigResult, retentionPath string, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			// due now-ish; run immediately
			go func() {
				if err := runOnce(ctx, eff, retentionPath); err != nil {
					logger.Error("retention_run_error", "error", err)
				}
			}()
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			go func() {
				if err := runOnce(ctx, eff, retentionPath); err != nil {
					logger.Error("retention_run_error", "error", err)
				}
			}()
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// runReport is the artifact written after every run so operators can audit
// what was purged and when.
type runReport struct {
	Time    string   `json:"time"`
	DryRun  bool     `json:"dry_run"`
	Scanned int      `json:"scanned"`
	Purged  []string `json:"purged"`
	Errors  int      `json:"errors"`
}

// runOnce scans every thread and purges archived ones whose last activity
// is older than the configured period. A zero period means archived threads
// are purged regardless of age. DryRun only reports what would go.
func runOnce(ctx context.Context, eff config.EffectiveConfigResult, retentionPath string) error {
	ret := eff.Config.Retention
	period := ret.Period.Duration()

	threads, err := store.ListThreads()
	if err != nil {
		return fmt.Errorf("retention list threads: %w", err)
	}

	cutoff := time.Now().Add(-period).UnixNano()
	report := runReport{
		Time:   time.Now().UTC().Format(time.RFC3339),
		DryRun: ret.DryRun,
	}

	for _, th := range threads {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		report.Scanned++
		if th.Status != models.ThreadStatusArchived {
			continue
		}
		if period > 0 && th.ActivityTS() > cutoff {
			continue
		}
		if ret.DryRun {
			logger.Info("retention_would_purge", "thread", th.ID)
			report.Purged = append(report.Purged, th.ID)
			continue
		}
		if err := store.DeleteThread(th.ID); err != nil {
			logger.Error("retention_purge_failed", "thread", th.ID, "error", err)
			report.Errors++
			continue
		}
		logger.AuditEvent("retention_purged_thread", "thread", th.ID)
		report.Purged = append(report.Purged, th.ID)
	}

	writeReport(reportDir(retentionPath), report)
	logger.Info("retention_run_done", "scanned", report.Scanned, "purged", len(report.Purged), "errors", report.Errors, "dry_run", report.DryRun)
	return nil
}

// reportDir prefers the configured artifact root so CI runs collect the run
// reports alongside other build artifacts.
func reportDir(fallback string) string {
	if p := state.ArtifactPath("retention"); p != "" {
		if err := os.MkdirAll(p, 0o700); err == nil {
			return p
		}
	}
	return fallback
}

func writeReport(dir string, report runReport) {
	f, err := os.CreateTemp(dir, ".run-*.tmp")
	if err != nil {
		logger.Warn("retention_report_failed", "error", err)
		return
	}
	name := f.Name()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		f.Close()
		_ = os.Remove(name)
		logger.Warn("retention_report_failed", "error", err)
		return
	}
	f.Close()
	final := filepath.Join(dir, fmt.Sprintf("run-%d.json", time.Now().UnixNano()))
	if err := os.Rename(name, final); err != nil {
		_ = os.Remove(name)
		logger.Warn("retention_report_failed", "error", err)
	}
}
