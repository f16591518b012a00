package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	nsCmd := &cobra.Command{
		Use:   "ns",
		Short: "Manage isolated memory namespaces",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded namespaces",
		Run:   runNSList,
	}
	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create (or open) a namespace",
		Args:  cobra.ExactArgs(1),
		Run:   runNSCreate,
	}

	nsCmd.AddCommand(listCmd, createCmd)
	RootCmd.AddCommand(nsCmd)
}

func runNSList(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	names, err := sys.Namespaces()
	if err != nil {
		exitErr("ns list", err)
	}
	b, _ := json.Marshal(names)
	fmt.Println(string(b))
}

func runNSCreate(cmd *cobra.Command, args []string) {
	sys, err := openSystem()
	if err != nil {
		exitErr("open workspace", err)
	}
	ns, err := sys.Namespace(args[0])
	if err != nil {
		exitErr("ns create", err)
	}
	if err := ns.Load(); err != nil {
		exitErr("ns create", err)
	}
	b, _ := json.Marshal(map[string]string{"namespace": args[0]})
	fmt.Println(string(b))
}
