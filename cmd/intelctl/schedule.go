package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run dispatch and report-all on their cron schedules",
	Long: `Keep running and trigger dispatch on DISPATCH_SCHEDULE and report-all on
REPORT_SCHEDULE (standard five field cron expressions).`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	c, err := newScheduler(ctx, application, cfg.Schedule.Dispatch, cfg.Schedule.Report)
	if err != nil {
		return err
	}
	c.Start()
	zap.L().Info("scheduler started",
		zap.String("dispatch", cfg.Schedule.Dispatch),
		zap.String("report", cfg.Schedule.Report),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	zap.L().Info("scheduler stopped")
	return nil
}

// newScheduler registers the dispatch and report-all triggers. Overlapping
// fires of the same job are skipped.
func newScheduler(ctx context.Context, a *app.App, dispatchSpec, reportSpec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	log := zap.L().With(zap.String("component", "scheduler"))

	if _, err := c.AddFunc(dispatchSpec, func() {
		result, err := a.Dispatcher.Dispatch(ctx, nil)
		if err != nil {
			log.Error("scheduled dispatch failed", zap.Error(err))
			return
		}
		log.Info("scheduled dispatch finished", zap.Int("started", result.Started), zap.Int("failed", result.Failed))
	}); err != nil {
		return nil, eris.Wrap(err, "register dispatch schedule")
	}

	if _, err := c.AddFunc(reportSpec, func() {
		result, err := a.Pipeline.RunAll(ctx)
		if err != nil {
			log.Error("scheduled report run failed", zap.Error(err))
			return
		}
		log.Info("scheduled report run finished", zap.Int("succeeded", result.Succeeded), zap.Int("failed", result.Failed))
	}); err != nil {
		return nil, eris.Wrap(err, "register report schedule")
	}

	return c, nil
}
