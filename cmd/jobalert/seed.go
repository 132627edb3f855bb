package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobalert/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert two test postings",
	Long:  "Saves a remote job and a hybrid internship so delivery can be tried end to end.",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedPostings match a Job/Remote/Python Developer subscriber and any
// Internship subscriber following Web Development.
var seedPostings = []model.Posting{
	{
		Title:        "Test Python Developer Position",
		Organization: "Test Company Inc",
		Location:     "Remote",
		Category:     model.CategoryJob,
		Mode:         model.ModeRemote,
		Topic:        "Python Developer",
		URL:          "https://example.com/test-job",
		Description:  "This is a test job for testing notifications",
		Source:       "TestSource",
		Freshness:    "Today",
	},
	{
		Title:        "Test Web Development Internship",
		Organization: "Test Startup",
		Location:     "India",
		Category:     model.CategoryInternship,
		Mode:         model.ModeHybrid,
		Topic:        "Web Development",
		URL:          "https://example.com/test-internship",
		Description:  "Test internship for web developers",
		Source:       "TestSource",
		Freshness:    "Today",
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.UpsertPostings(ctx, seedPostings, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Added %d test postings.\n", n)
	return nil
}
