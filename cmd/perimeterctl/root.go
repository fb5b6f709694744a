package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/pkg/logger"
)

type rootOptions struct {
	configFile string
	key        string
}

// newRootCmd represents the base command when perimeterctl is called without
// any subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "perimeterctl",
		Short: "Administer perimeter signing keys and tokens",
		Long: `perimeterctl generates signing keys and issues or verifies tokens with
the key the perimeter services are configured with.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file used to resolve the signing key")
	cmd.PersistentFlags().StringVar(&opts.key, "key", "", "base64 signing key; overrides the config file")

	cmd.AddCommand(newKeygenCmd(), newTokenCmd(opts))
	return cmd
}

// signingKey resolves the key from --key, or from configuration (Vault or
// jwt.secret_base64) otherwise.
func (o *rootOptions) signingKey(ctx context.Context) (*crypto.SigningKey, error) {
	if o.key != "" {
		return crypto.ParseSigningKey(o.key)
	}
	log := logger.NewNoopLogger()
	cfg, err := config.NewLoader(o.configFile, log).Load()
	if err != nil {
		return nil, err
	}
	return crypto.LoadSigningKey(ctx, cfg, log)
}
