package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	walCmd := &cobra.Command{
		Use:   "wal",
		Short: "Inspect or flush the write-ahead log",
	}

	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Flush pending WAL records into shards and indexes",
		Run:   runWALFlush,
	}
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report pending WAL record count, size, and a sample",
		Run:   runWALInspect,
	}

	walCmd.AddCommand(flushCmd, inspectCmd)
	RootCmd.AddCommand(walCmd)
}

func runWALFlush(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	n, err := sys.WALFlush()
	if err != nil {
		exitErr("wal flush", err)
	}
	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}
	b, _ := json.Marshal(map[string]int{"flushed": n})
	fmt.Println(string(b))
}

func runWALInspect(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	inspection, err := sys.WALInspect()
	if err != nil {
		exitErr("wal inspect", err)
	}
	b, _ := json.MarshalIndent(inspection, "", "  ")
	fmt.Println(string(b))
}
