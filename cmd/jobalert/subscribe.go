package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/model"
)

var (
	subID        int64
	subUsername  string
	subFirstName string
	subCategory  string
	subMode      string
	subTopics    []string
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Create or update a subscriber",
	Long:  "Saves a subscriber's preferences and marks them active.",
	RunE:  runSubscribe,
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Stop deliveries to a subscriber",
	RunE:  runUnsubscribe,
}

var subscribersCmd = &cobra.Command{
	Use:   "subscribers",
	Short: "List active subscribers",
	RunE:  runSubscribers,
}

func init() {
	subscribeCmd.Flags().Int64Var(&subID, "id", 0, "subscriber id (chat id on the gateway)")
	subscribeCmd.Flags().StringVar(&subUsername, "username", "", "username")
	subscribeCmd.Flags().StringVar(&subFirstName, "first-name", "", "first name")
	subscribeCmd.Flags().StringVar(&subCategory, "category", "", "Job or Internship")
	subscribeCmd.Flags().StringVar(&subMode, "mode", "", "Remote, Onsite or Hybrid")
	subscribeCmd.Flags().StringArrayVar(&subTopics, "topic", nil, fmt.Sprintf("topic to follow (repeatable, up to %d)", model.MaxTopics))
	subscribeCmd.MarkFlagRequired("id")
	subscribeCmd.MarkFlagRequired("category")
	subscribeCmd.MarkFlagRequired("mode")

	unsubscribeCmd.Flags().Int64Var(&subID, "id", 0, "subscriber id")
	unsubscribeCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(subscribeCmd, unsubscribeCmd, subscribersCmd)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	category, err := model.ParseCategory(subCategory)
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(subMode)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, t := range subTopics {
		if !containsFold(a.cfg.Topics, t) {
			a.logger.Warn("topic is not in the configured list", "topic", t)
		}
	}

	sub := model.Subscriber{
		ID:        subID,
		Username:  subUsername,
		FirstName: subFirstName,
		Category:  category,
		Mode:      mode,
		Topics:    subTopics,
		Active:    true,
	}
	if err := a.store.UpsertSubscriber(ctx, sub); err != nil {
		return err
	}
	fmt.Printf("Subscriber %d saved: %s / %s / %s\n", sub.ID, sub.Category, sub.Mode, strings.Join(sub.Topics, ", "))
	return nil
}

func runUnsubscribe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetActive(ctx, subID, false); err != nil {
		return err
	}
	fmt.Printf("Subscriber %d deactivated.\n", subID)
	return nil
}

func runSubscribers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, setupLogger(debug), false)
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

	fmt.Printf("%-14s %-18s %-11s %-7s %s\n", "ID", "Name", "Category", "Mode", "Topics")
	fmt.Println(strings.Repeat("─", 80))
	for _, s := range subs {
		name := s.Username
		if name == "" {
			name = s.FirstName
		}
		fmt.Printf("%-14d %-18s %-11s %-7s %s\n", s.ID, name, s.Category, s.Mode, strings.Join(s.Topics, ", "))
	}
	fmt.Printf("\n%d active\n", len(subs))
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
