package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Propose (and optionally apply) near-duplicate merges, clusters, and contradictions",
		Run:   runConsolidate,
	}
	cmd.Flags().Bool("apply", false, "Apply proposed near-duplicate merges")
	RootCmd.AddCommand(cmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	apply, _ := cmd.Flags().GetBool("apply")

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	report, err := sys.Consolidate(apply)
	if err != nil {
		exitErr("consolidate", err)
	}
	if apply {
		if err := sys.Save(); err != nil {
			exitErr("save", err)
		}
	}

	b, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(b))
}
