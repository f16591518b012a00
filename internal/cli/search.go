package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foundryforge/agentmem/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored memories",
		Run:   runSearch,
	}

	cmd.Flags().String("category", "", "Filter by category")
	cmd.Flags().String("type", "", "Filter by memory type")
	cmd.Flags().Float64("min-confidence", 0, "Minimum confidence")
	cmd.Flags().Int("limit", 10, "Maximum results")
	cmd.Flags().Bool("explain", false, "Include score breakdown")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	memoryType, _ := cmd.Flags().GetString("type")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	limit, _ := cmd.Flags().GetInt("limit")
	explain, _ := cmd.Flags().GetBool("explain")

	q := search.Query{
		Text:          strings.Join(args, " "),
		Category:      category,
		MemoryType:    memoryType,
		MinConfidence: minConfidence,
		Limit:         limit,
		Explain:       explain,
	}

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}

	results, err := sys.Search(context.Background(), q)
	if err != nil {
		exitErr("search", err)
	}

	printResult(results)
}
