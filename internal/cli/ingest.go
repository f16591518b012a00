package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runIngest,
	}

	cmd.Flags().StringP("source", "s", "cli", "Origin tag")
	cmd.Flags().String("category", "", "Category (default: general, or gated category with --gate)")
	cmd.Flags().String("type", "episodic", "Memory type: episodic, fact, preference, procedure, mistake")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().Bool("gate", false, "Classify through the input gate, dropping P3 content")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	source, _ := cmd.Flags().GetString("source")
	category, _ := cmd.Flags().GetString("category")
	memoryType, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	gated, _ := cmd.Flags().GetBool("gate")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("ingest", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	tags := splitTags(tagsStr)

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}

	var (
		statusStr string
		entryID   string
	)
	if gated {
		s, e, err := sys.IngestWithGating(strings.TrimSpace(content), source, category, memoryType, tags)
		if err != nil {
			exitErr("ingest", err)
		}
		statusStr = string(s)
		if e != nil {
			entryID = e.ID
		}
	} else {
		s, e, err := sys.Ingest(strings.TrimSpace(content), source, category, memoryType, tags)
		if err != nil {
			exitErr("ingest", err)
		}
		statusStr = string(s)
		if e != nil {
			entryID = e.ID
		}
	}

	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}

	b, _ := json.Marshal(map[string]string{"status": statusStr, "id": entryID})
	fmt.Println(string(b))
}

func splitTags(tagsStr string) []string {
	var tags []string
	if tagsStr == "" {
		return tags
	}
	for _, t := range strings.Split(tagsStr, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
