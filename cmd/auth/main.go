// Command perimeter-auth serves POST /auth/login, validating credentials
// against the identity service and issuing signed tokens.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/perimeter/internal/app"
	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/internal/infrastructure/identity"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/logger"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "perimeter-auth",
		Short:        "Login service issuing bearer tokens",
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
	rt, err := app.Load(configFile, constants.ServiceAuth)
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

	auth := app.NewAuth(rt, crypto.NewJWTManager(key), identity.NewHTTPValidator(&rt.Config.Identity))
	defer func() {
		if err := auth.Close(); err != nil {
			rt.Logger.Warn(context.Background(), "Failed to close audit sink", logger.Err(err))
		}
	}()

	rt.Logger.Info(ctx, "Auth service starting",
		logger.String("identity", rt.Config.Identity.BaseURL),
		logger.Int64("ttl_seconds", rt.Config.JWT.TTLSeconds),
	)
	return auth.Run(ctx)
}
