package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rebuild-index",
		Short: "Rebuild the text, tag, and date indexes from the authoritative entry set",
		Run:   runRebuildIndex,
	}
	RootCmd.AddCommand(cmd)
}

func runRebuildIndex(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	terms, tags, dates, err := sys.RebuildIndexes()
	if err != nil {
		exitErr("rebuild-index", err)
	}
	b, _ := json.Marshal(map[string]int{"terms": terms, "tags": tags, "dates": dates})
	fmt.Println(string(b))
}
