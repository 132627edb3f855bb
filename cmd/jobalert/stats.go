package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger counts",
	RunE:  runStats,
}

var (
	statsTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(22)

	statsValueStyle = lipgloss.NewStyle().
			Bold(true)

	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, setupLogger(debug), false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store.Stats(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	combos, err := a.matcher().DistinctCombinations(ctx)
	if err != nil {
		return err
	}

	rows := []struct {
		label string
		value int
	}{
		{"Subscribers", st.Subscribers},
		{"Active subscribers", st.ActiveSubscribers},
		{"Preference groups", len(combos)},
		{"Postings", st.Postings},
		{"Postings (last 24h)", st.RecentPostings},
		{"Deliveries", st.Deliveries},
	}

	body := statsTitleStyle.Render("jobalert stats") + "\n"
	for _, r := range rows {
		body += statsLabelStyle.Render(r.label) + statsValueStyle.Render(fmt.Sprint(r.value)) + "\n"
	}
	fmt.Println(statsBoxStyle.Render(body))

	for _, c := range combos {
		fmt.Println("  " + c.String())
	}
	return nil
}
