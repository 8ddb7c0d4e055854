// Command gridmap builds, stores and applies regrid operators for NetCDF
// fields.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/gridmap/internal/monitoring"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		l := monitoring.Component("cli")
		l.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
