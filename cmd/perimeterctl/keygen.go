package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random base64 signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateSigningKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key.Base64())
			return err
		},
	}
}
