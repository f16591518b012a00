package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report workspace-level counts",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	inspection, err := sys.WALInspect()
	if err != nil {
		exitErr("stats", err)
	}
	printResult(map[string]any{
		"entry_count": sys.EntryCount(),
		"wal_pending": inspection.Pending,
		"wal_bytes":   inspection.Bytes,
	})
}
