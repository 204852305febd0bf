package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/burrowhq/presence/internal/hub"
	"github.com/burrowhq/presence/internal/printer"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live broadcast stream",
	Long: `Subscribe to the tenant's broadcast channel and print every change
description as it arrives. Runs until interrupted.

Delivery is at-most-once: messages published before the subscription
started are not replayed.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, err := tenantStore()
	if err != nil {
		return err
	}
	defer store.Close()

	broadcastHub := hub.New(store.Redis().Options(), store.Schema())
	defer broadcastHub.Close()

	obs, err := broadcastHub.Subscribe(ctx)
	if err != nil {
		return printer.Error("Failed to subscribe: %v", err)
	}
	defer obs.Close()

	printer.Step("Watching broadcasts (Ctrl-C to stop)...\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	for {
		select {
		case <-sigCh:
			printer.Info("\nStopped.\n")
			return nil
		case msg, ok := <-obs.Messages():
			if !ok {
				return nil
			}
			printer.Info("%s\n", msg)
		}
	}
}
