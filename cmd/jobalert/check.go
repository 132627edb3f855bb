package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/model"
)

var (
	checkCategory string
	checkMode     string
	checkTopic    string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Harvest once, print postings, exit",
	Long:  "One-shot harvest for a single category, mode and topic across every enabled source. Does not write to the store.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkCategory, "category", "Internship", "Job or Internship")
	checkCmd.Flags().StringVar(&checkMode, "mode", "Remote", "Remote, Onsite or Hybrid")
	checkCmd.Flags().StringVar(&checkTopic, "topic", "Python Developer", "topic to search")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	category, err := model.ParseCategory(checkCategory)
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(checkMode)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, logger, false)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	logger.Info("check mode: nothing will be saved")
	postings, err := a.harvester().Fetch(ctx, category, mode, checkTopic)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	for i, p := range postings {
		valid := "ok"
		if err := p.Validate(); err != nil {
			valid = err.Error()
		}
		fmt.Printf("%2d. %s\n    %s · %s · %s · %s [%s]\n    %s\n",
			i+1, p.Title, p.Organization, p.Location, p.Mode, p.Source, valid, p.URL)
	}
	fmt.Printf("\n%d postings for %s / %s / %s\n", len(postings), category, mode, checkTopic)
	return nil
}
