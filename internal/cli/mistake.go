package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest-mistake",
		Short: "Store a mistake memory (what happened, correction, root cause)",
		Run:   runIngestMistake,
	}
	cmd.Flags().String("what", "", "What happened")
	cmd.Flags().String("correction", "", "The correction applied")
	cmd.Flags().String("root-cause", "", "The root cause")
	cmd.Flags().String("severity", "medium", "Severity: low, medium, high")
	cmd.Flags().StringP("source", "s", "cli", "Origin tag")
	cmd.Flags().String("category", "", "Category")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.MarkFlagRequired("what")
	cmd.MarkFlagRequired("correction")
	RootCmd.AddCommand(cmd)
}

func runIngestMistake(cmd *cobra.Command, args []string) {
	what, _ := cmd.Flags().GetString("what")
	correction, _ := cmd.Flags().GetString("correction")
	rootCause, _ := cmd.Flags().GetString("root-cause")
	severity, _ := cmd.Flags().GetString("severity")
	source, _ := cmd.Flags().GetString("source")
	category, _ := cmd.Flags().GetString("category")
	tagsStr, _ := cmd.Flags().GetString("tags")

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	status, e, err := sys.IngestMistake(what, correction, rootCause, severity, source, category, splitTags(tagsStr))
	if err != nil {
		exitErr("ingest-mistake", err)
	}
	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}

	var id string
	if e != nil {
		id = e.ID
	}
	b, _ := json.Marshal(map[string]string{"status": string(status), "id": id})
	fmt.Println(string(b))
}
