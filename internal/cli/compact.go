package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundryforge/agentmem/internal/decay"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Find (and optionally archive) decayed-below-threshold memories",
		Run:   runCompact,
	}
	cmd.Flags().Float64("threshold", decay.DefaultArchiveThreshold, "Decay score threshold")
	cmd.Flags().Bool("apply", false, "Actually remove candidates instead of only listing them")
	RootCmd.AddCommand(cmd)
}

func runCompact(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	apply, _ := cmd.Flags().GetBool("apply")

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	report, err := sys.Compact(threshold, apply)
	if err != nil {
		exitErr("compact", err)
	}
	if apply {
		if err := sys.Save(); err != nil {
			exitErr("save", err)
		}
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
