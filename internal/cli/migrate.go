package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundryforge/agentmem/internal/migrate"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a legacy single-file workspace to the sharded layout",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the workspace still needs migration",
		Run:   runMigrateStatus,
	}
	rollbackCmd := &cobra.Command{
		Use:   "rollback [backup-path]",
		Short: "Restore a workspace from a migration backup",
		Args:  cobra.ExactArgs(1),
		Run:   runMigrateRollback,
	}

	migrateCmd.AddCommand(statusCmd, rollbackCmd)
	RootCmd.AddCommand(migrateCmd)
}

func runMigrateStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("migrate status", err)
	}
	m := migrate.New(cfg.Workspace)
	b, _ := json.Marshal(map[string]bool{"needs_migration": m.NeedsMigration()})
	fmt.Println(string(b))
}

func runMigrateRollback(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("migrate rollback", err)
	}
	m := migrate.New(cfg.Workspace)
	if err := m.Rollback(args[0]); err != nil {
		exitErr("migrate rollback", err)
	}
	fmt.Println(`{"status":"rolled_back"}`)
}
