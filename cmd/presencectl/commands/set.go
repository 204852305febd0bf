package commands

import (
	"context"
	"math"

	"github.com/spf13/cobra"

	"github.com/burrowhq/presence/internal/embedding"
	"github.com/burrowhq/presence/internal/geo"
	"github.com/burrowhq/presence/internal/hub"
	"github.com/burrowhq/presence/internal/icon"
	"github.com/burrowhq/presence/internal/presence"
	"github.com/burrowhq/presence/internal/printer"
	"github.com/burrowhq/presence/pkg/directory"
)

var (
	setUsername string
	setStatus   string
	setMessage  string
	setLon      float64
	setLat      float64
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set your status",
	Long: `Write a status record for a user, resolving the message to an icon
and broadcasting the change to live observers.

Longitude and latitude must be supplied together or not at all.

Examples:
  presencectl set --user alice --status Busy --message "grabbing coffee"
  presencectl set --user alice --status Available --lon -0.1278 --lat 51.5074`,
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&setUsername, "user", "", "Username (required)")
	setCmd.Flags().StringVar(&setStatus, "status", "", "Status: Available, Busy or Away (required)")
	setCmd.Flags().StringVar(&setMessage, "message", "", "Free-text status message")
	setCmd.Flags().Float64Var(&setLon, "lon", math.NaN(), "Longitude (requires --lat)")
	setCmd.Flags().Float64Var(&setLat, "lat", math.NaN(), "Latitude (requires --lon)")
	setCmd.MarkFlagRequired("user")
	setCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, err := tenantStore()
	if err != nil {
		return err
	}
	defer store.Close()

	hasLon := !math.IsNaN(setLon)
	hasLat := !math.IsNaN(setLat)
	if hasLon != hasLat {
		return printer.Error("--lon and --lat must be supplied together")
	}

	schema := store.Schema()
	icons := icon.NewResolver(func() (embedding.Embedder, error) {
		return embedding.Default(cfg.VectorFile)
	}, icon.NewRedisIndex(store.Redis(), schema))

	boundary, err := geo.LoadBoundary(cfg.BoundaryFile)
	if err != nil {
		return err
	}
	spatial := geo.NewQuery(store.Redis(), schema)

	redisOpts := store.Redis().Options()
	broadcastHub := hub.New(redisOpts, schema)
	defer broadcastHub.Close()

	svc := presence.NewService(store, icons, spatial, broadcastHub, boundary)

	req := presence.UpdateRequest{
		Username: setUsername,
		Status:   directory.Status(setStatus),
		Message:  setMessage,
	}
	if hasLon {
		req.Location = &directory.Location{Longitude: setLon, Latitude: setLat}
	}

	record, err := svc.UpdateStatus(ctx, req)
	if err != nil {
		return printer.Error("Failed to set status: %v", err)
	}

	printer.Success("Status updated\n")
	printer.Record(record)
	return nil
}
