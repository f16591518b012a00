// Package cli implements the agentmem CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foundryforge/agentmem/internal/config"
	"github.com/foundryforge/agentmem/internal/embedding"
	"github.com/foundryforge/agentmem/internal/store"
)

var (
	workspaceFlag string
	configFlag    string
	formatFlag    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agentmem",
	Short: "Persistent file-based memory for AI agents",
	Long:  "A file-based, crash-safe memory store for AI agents. Ingest, search, and manage short textual memories on a single workspace directory.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace directory (default: $WORKSPACE_PATH)")
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file path")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format for search and stats: json or yaml")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configFlag, workspaceFlag)
}

func openSystem() (*store.System, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sys, err := store.Open(cfg, embedding.NewFromEnv())
	if err != nil {
		return nil, err
	}
	if err := sys.Load(); err != nil {
		return nil, err
	}
	return sys, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// printResult renders v per formatFlag. "yaml" produces a YAML document;
// anything else (including the default "json") produces indented JSON.
func printResult(v any) {
	if formatFlag == "yaml" {
		b, err := yaml.Marshal(v)
		if err != nil {
			exitErr("render yaml", err)
		}
		fmt.Print(string(b))
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitErr("render json", err)
	}
	fmt.Println(string(b))
}
