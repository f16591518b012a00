package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foundryforge/agentmem/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "outcome [ids...]",
		Short: "Record a good/neutral/bad outcome for one or more memory ids",
		Run:   runOutcome,
	}
	cmd.Flags().String("label", "neutral", "Outcome label: good, neutral, or bad")
	RootCmd.AddCommand(cmd)

	statsCmd := &cobra.Command{
		Use:   "feedback-stats",
		Short: "Report recorded outcome counts",
		Run:   runFeedbackStats,
	}
	RootCmd.AddCommand(statsCmd)
}

func runOutcome(cmd *cobra.Command, args []string) {
	label, _ := cmd.Flags().GetString("label")
	if len(args) == 0 {
		exitErr("outcome", fmt.Errorf("at least one entry id is required"))
	}

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	if err := sys.RecordOutcome(args, store.OutcomeLabel(strings.ToLower(label))); err != nil {
		exitErr("outcome", err)
	}
	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}

	b, _ := json.Marshal(map[string]any{"recorded": len(args), "label": label})
	fmt.Println(string(b))
}

func runFeedbackStats(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	stats, err := sys.FeedbackStats()
	if err != nil {
		exitErr("feedback-stats", err)
	}
	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}
