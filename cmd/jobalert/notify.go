package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/notifier"
)

var notifyTo int64

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a summary and a sample posting through the configured gateway.",
	RunE:  runNotifyTest,
}

func init() {
	notifyTestCmd.Flags().Int64Var(&notifyTo, "to", 0, "subscriber id to send to")
	notifyTestCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	ctx := context.Background()
	a, err := newApp(ctx, logger, false)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := notifier.SendTestMessage(ctx, a.gateway(), notifyTo); err != nil {
		return fmt.Errorf("test notification: %w", err)
	}
	logger.Info("test notification sent successfully", "to", notifyTo)
	return nil
}
