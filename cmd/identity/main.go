// Command perimeter-identity is the credential store behind the auth service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/perimeter/internal/app"
	"github.com/turtacn/perimeter/pkg/constants"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "perimeter-identity",
		Short:        "Identity store validating usernames and passwords",
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
	rt, err := app.Load(configFile, constants.ServiceIdentity)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())
	rt.WatchConfig()

	svc, err := app.NewIdentity(ctx, rt)
	if err != nil {
		rt.Logger.Error(ctx, "Failed to start identity store", err)
		return err
	}
	defer svc.Close()

	return svc.Router.Run(ctx)
}
