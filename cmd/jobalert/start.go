package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/metrics"
	"github.com/amishk599/jobalert/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	Long:  "Runs acquisition, delivery and cleanup on their schedules; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, logger, true)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer a.Close()
	cfg := a.cfg

	logger.Info("config loaded",
		"acquisition_interval", cfg.AcquisitionInterval.String(),
		"delivery_times", cfg.DeliveryTimes,
		"retention_days", cfg.RetentionDays,
		"lookback", cfg.Lookback.String(),
		"sources", len(cfg.Harvester.EnabledSources()),
		"gateway", cfg.Gateway.Type,
	)

	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.New()
		go func() {
			if err := a.metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	deliverySchedule, err := scheduler.ParseDailySchedule(cfg.DeliveryTimes, time.Local)
	if err != nil {
		return fmt.Errorf("delivery schedule: %w", err)
	}
	cleanupSchedule := scheduler.DailySchedule{
		Times:    []scheduler.Clock{{Hour: cfg.CleanupHour}},
		Location: time.Local,
	}

	sched, err := scheduler.New(a.trigger(), a.deliveryEngine(), a.cleaner(), scheduler.Config{
		AcquisitionInterval: cfg.AcquisitionInterval,
		Delivery:            deliverySchedule,
		Cleanup:             cleanupSchedule,
		RetentionDays:       cfg.RetentionDays,
	}, logger)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	logger.Info("goodbye")
	return nil
}
