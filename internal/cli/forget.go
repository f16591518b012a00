package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foundryforge/agentmem/internal/forget"
)

func init() {
	forgetCmd := &cobra.Command{
		Use:   "forget",
		Short: "Remove memories by entity, topic, id, or age",
		Run:   runForget,
	}
	forgetCmd.Flags().String("entity", "", "Match content containing this entity")
	forgetCmd.Flags().String("topic", "", "Match content containing this topic")
	forgetCmd.Flags().String("id", "", "Match a specific entry id")
	forgetCmd.Flags().String("before", "", "Match entries created before this date (YYYY-MM-DD)")
	RootCmd.AddCommand(forgetCmd)

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove memories by source or content substring",
		Run:   runPurge,
	}
	purgeCmd.Flags().String("source", "", "Match entries from this source")
	purgeCmd.Flags().String("contains", "", "Match content containing this substring")
	RootCmd.AddCommand(purgeCmd)
}

func runForget(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	topic, _ := cmd.Flags().GetString("topic")
	id, _ := cmd.Flags().GetString("id")
	before, _ := cmd.Flags().GetString("before")

	c := forget.ForgetCriteria{Entity: entity, Topic: topic, ID: id}
	if before != "" {
		t, err := time.Parse("2006-01-02", before)
		if err != nil {
			exitErr("forget", fmt.Errorf("invalid --before date: %w", err))
		}
		c.BeforeDate = t
	}

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	result, err := sys.Forget(c)
	if err != nil {
		exitErr("forget", err)
	}
	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}

	b, _ := json.Marshal(result)
	fmt.Println(string(b))
}

func runPurge(cmd *cobra.Command, args []string) {
	source, _ := cmd.Flags().GetString("source")
	contains, _ := cmd.Flags().GetString("contains")

	c := forget.PurgeCriteria{Source: source, ContentContains: contains}

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	result, err := sys.Purge(c)
	if err != nil {
		exitErr("purge", err)
	}
	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}

	b, _ := json.Marshal(result)
	fmt.Println(string(b))
}
