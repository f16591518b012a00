package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundryforge/agentmem/internal/store"
)

// bulkItemInput is the JSON shape accepted on stdin: a list of items to
// ingest in one bulk pass.
type bulkItemInput struct {
	Content    string   `json:"content"`
	Source     string   `json:"source"`
	Category   string   `json:"category"`
	MemoryType string   `json:"memory_type"`
	Tags       []string `json:"tags"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "bulk-ingest",
		Short: "Ingest a JSON array of memories from stdin in one pass",
		Run:   runBulkIngest,
	}
	RootCmd.AddCommand(cmd)
}

func runBulkIngest(cmd *cobra.Command, args []string) {
	var inputs []bulkItemInput
	dec := json.NewDecoder(os.Stdin)
	if err := dec.Decode(&inputs); err != nil {
		exitErr("bulk-ingest", fmt.Errorf("decode stdin JSON array: %w", err))
	}

	items := make([]store.BulkItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, store.BulkItem{
			Content:    in.Content,
			Source:     in.Source,
			Category:   in.Category,
			MemoryType: in.MemoryType,
			Tags:       in.Tags,
		})
	}

	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	stored, duplicates, dropped, warning, err := sys.BulkIngest(items)
	if err != nil {
		exitErr("bulk-ingest", err)
	}
	if err := sys.Save(); err != nil {
		exitErr("save", err)
	}

	out := map[string]any{"stored": stored, "duplicates": duplicates, "dropped": dropped}
	if warning != "" {
		out["warning"] = warning
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
