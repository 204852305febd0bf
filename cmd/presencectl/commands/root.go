package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/burrowhq/presence/internal/config"
	"github.com/burrowhq/presence/pkg/directory"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "presencectl",
	Short: "Presencectl - presence directory command line",
	Long: `Presencectl talks to a presence directory tenant: list who is around,
set your own status, follow the live broadcast stream, and load the
tenant's icon candidates.

All operations are scoped to the tenant configured in presence.yml.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "presence.yml", "Path to the presence configuration file")
}

// tenantStore loads the configuration and opens the tenant's store.
// The caller closes the store.
func tenantStore() (*config.Config, *directory.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis_url: %w", err)
	}
	schema, err := directory.NewSchema(cfg.Tenant, cfg.KeyStyle)
	if err != nil {
		return nil, nil, err
	}
	return cfg, directory.NewStore(redisOpts, schema), nil
}
