package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/delivery"
)

var broadcastMessage string

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "Send a text message to every active subscriber",
	RunE:  runBroadcast,
}

func init() {
	broadcastCmd.Flags().StringVarP(&broadcastMessage, "message", "m", "", "message text")
	broadcastCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(broadcastCmd)
}

func runBroadcast(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := delivery.Broadcast(ctx, a.store, a.gateway(), broadcastMessage, a.cfg.Delivery.SendDelay, logger)
	if err != nil {
		return err
	}
	if rep.Recipients == 0 {
		fmt.Println("No active subscribers to broadcast to.")
		return nil
	}
	fmt.Printf("Broadcast complete: %d sent, %d failed of %d subscribers\n", rep.Sent, rep.Failed, rep.Recipients)
	return nil
}
