package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Run one acquisition cycle",
	Long:  "Harvests postings for every active preference combination once and saves them.",
	RunE:  runAcquire,
}

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Run one delivery cycle",
	Long:  "Sends every active subscriber the postings they have not received yet.",
	RunE:  runDeliver,
}

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old postings and their delivery records",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention in days (default: retention_days from config)")
	rootCmd.AddCommand(acquireCmd, deliverCmd, cleanupCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runAcquire(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.trigger().Run(ctx)
	if err != nil {
		return fmt.Errorf("acquisition: %w", err)
	}
	if res.Skipped {
		fmt.Println("Acquisition skipped: another cycle is running.")
		return nil
	}
	fmt.Printf("Acquisition complete: %d combinations, %d fetched, %d saved, %d invalid, %d failed topics (%s)\n",
		res.Combinations, res.Fetched, res.Saved, res.Invalid, res.Failed, res.Duration.Round(time.Millisecond))
	return nil
}

func runDeliver(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.deliveryEngine().Run(ctx)
	if err != nil {
		return fmt.Errorf("delivery: %w", err)
	}
	fmt.Printf("Delivery complete: %d subscribers, %d notified, %d sent, %d failed (%s)\n",
		rep.Subscribers, rep.Notified, rep.Sent, rep.Failed, rep.Duration.Round(time.Millisecond))
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	days := cleanupDays
	if days == 0 {
		days = a.cfg.RetentionDays
	}
	n, err := a.cleaner().Cleanup(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	fmt.Printf("Removed %d records older than %d days.\n", n, days)
	return nil
}
