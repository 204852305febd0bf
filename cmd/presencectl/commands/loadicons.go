package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/burrowhq/presence/internal/embedding"
	"github.com/burrowhq/presence/internal/icon"
	"github.com/burrowhq/presence/internal/printer"
)

var loadIconsFile string

var loadIconsCmd = &cobra.Command{
	Use:   "load-icons",
	Short: "Load the tenant's icon candidates",
	Long: `Embed icon candidates and load them into the tenant's vector index,
creating the index if needed. This is the loading process the icon
resolver reads from; the resolver itself never writes.

The candidates file is a YAML list:

  - name: coffee
    phrase: coffee break espresso latte
  - name: meeting
    phrase: meeting call presentation`,
	RunE: runLoadIcons,
}

func init() {
	loadIconsCmd.Flags().StringVar(&loadIconsFile, "file", "icons.yml", "Path to the icon candidates file")
	rootCmd.AddCommand(loadIconsCmd)
}

func runLoadIcons(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, err := tenantStore()
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := os.ReadFile(loadIconsFile)
	if err != nil {
		return fmt.Errorf("failed to read candidates file: %w", err)
	}
	var candidates []icon.Candidate
	if err := yaml.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("failed to parse candidates file: %w", err)
	}
	if len(candidates) == 0 {
		return printer.Error("No candidates in %s", loadIconsFile)
	}

	emb, err := embedding.Default(cfg.VectorFile)
	if err != nil {
		return printer.Error("Failed to load embedding model: %v", err)
	}

	index := icon.NewRedisIndex(store.Redis(), store.Schema())
	if err := index.LoadCandidates(ctx, emb, candidates); err != nil {
		return printer.Error("Failed to load candidates: %v", err)
	}

	printer.Success("Loaded %d icon candidate(s) into %s\n", len(candidates), store.Schema().IconIndexName())
	return nil
}
