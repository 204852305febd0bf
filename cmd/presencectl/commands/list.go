package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/burrowhq/presence/internal/printer"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List everyone in the directory",
	Long: `List every status record in the tenant's namespace.

For each user, displays status, username, resolved icon, message and
location (when set). Use --json for machine-readable output.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, err := tenantStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListAll(ctx)
	if err != nil {
		return printer.Error("Failed to list users: %v", err)
	}

	// Enumeration order is unspecified; sort for stable display.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Username < records[j].Username
	})

	if listJSON {
		return json.NewEncoder(os.Stdout).Encode(records)
	}

	if len(records) == 0 {
		printer.Info("No users yet.\n")
		return nil
	}
	for _, r := range records {
		printer.Record(r)
	}
	fmt.Println()
	printer.Info("%d user(s)\n", len(records))
	return nil
}
