// Package scheduler re-imports every configured feed on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/eviefp/hcs/internal/config"
	appLog "github.com/eviefp/hcs/internal/log"
	"github.com/eviefp/hcs/internal/model"
)

// Runner imports all configured sources.
type Runner interface {
	ImportAll(ctx context.Context, cfg *config.Config) (map[string]model.ReplaceResult, error)
}

// Scheduler runs Runner.ImportAll on cfg.RefreshCron. A tick is skipped if
// the previous one is still running.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	runner Runner
}

// New parses cfg.RefreshCron (standard five-field syntax) and returns a
// stopped Scheduler.
func New(cfg *config.Config, runner Runner) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.RefreshCron); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err)
	}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, cfg: cfg, runner: runner}, nil
}

// Run imports once immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() { s.tick(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	appLog.Info("scheduler started", "schedule", s.cfg.RefreshCron, "sources", len(s.cfg.Imports))

	<-ctx.Done()

	// Wait for a running tick to observe the cancellation.
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runID := uuid.NewString()
	appLog.Debug("scheduled import started", "run_id", runID)

	results, err := s.runner.ImportAll(ctx, s.cfg)
	if err != nil {
		appLog.Error("scheduled import failed", err, "run_id", runID, "imported", len(results))
		return
	}
	appLog.Info("scheduled import completed", "run_id", runID, "imported", len(results))
}
