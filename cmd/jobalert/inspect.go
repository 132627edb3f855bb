package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/inspect"
)

// recentLimit bounds the left pane of the inspector.
const recentLimit = 200

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse postings interactively (TUI)",
	Long:  "Shows the subscriber picker, then recent postings next to the ones that subscriber would receive next.",
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	// Any log output before the alt-screen starts corrupts the display.
	silent := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := context.Background()
	a, err := newApp(ctx, silent, false)
	if err != nil {
		return err
	}
	defer a.Close()

	subs, err := a.store.ActiveSubscribers(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println("No active subscribers.")
		return nil
	}
	matcher := a.matcher()

	for {
		choice, err := inspect.RunSubscriberPicker(subs)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}
		sub := subs[choice]

		lists, err := inspect.RunLoader(fmt.Sprint(sub.ID), func(ctx context.Context) (inspect.Lists, error) {
			recent, err := a.store.RecentPostings(ctx, recentLimit)
			if err != nil {
				return inspect.Lists{}, err
			}
			eligible, err := matcher.EligiblePostings(ctx, sub.ID, recentLimit)
			if err != nil {
				return inspect.Lists{}, err
			}
			return inspect.Lists{Recent: recent, Eligible: eligible}, nil
		})
		if err != nil {
			fmt.Printf("Error loading postings: %v\n", err)
			continue
		}

		wantQuit, err := inspect.Run(lists)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
	}
}
