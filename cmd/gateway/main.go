// Command perimeter-gateway is the edge: it authenticates bearer tokens and
// forwards requests to the configured upstreams.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/perimeter/internal/app"
	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/pkg/constants"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "perimeter-gateway",
		Short:        "Edge gateway enforcing bearer authentication",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	rt, err := app.Load(configFile, constants.ServiceGateway)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())
	rt.WatchConfig()

	key, err := rt.SigningKey(ctx)
	if err != nil {
		rt.Logger.Error(ctx, "Failed to load signing key", err)
		return err
	}

	gateway, err := app.NewGateway(rt, crypto.NewJWTManager(key))
	if err != nil {
		rt.Logger.Error(ctx, "Failed to build gateway", err)
		return err
	}
	return gateway.Run(ctx)
}
