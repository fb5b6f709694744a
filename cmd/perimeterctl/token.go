package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/perimeter/internal/infrastructure/crypto"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify bearer tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(opts), newTokenVerifyCmd(opts))
	return cmd
}

func newTokenIssueCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a token for --sub with --roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(subject) == "" {
				return fmt.Errorf("--sub is required")
			}
			if ttl < time.Second {
				return fmt.Errorf("--ttl must be at least 1s")
			}
			key, err := opts.signingKey(cmd.Context())
			if err != nil {
				return err
			}
			token, err := crypto.NewJWTManager(key).Issue(subject, roles, int64(ttl/time.Second))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "token subject (user id)")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "comma-separated roles")
	cmd.Flags().DurationVar(&ttl, "ttl", constants.TokenDefaultTTL, "token lifetime")
	return cmd
}

func newTokenVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := opts.signingKey(cmd.Context())
			if err != nil {
				return err
			}
			claims, err := crypto.NewJWTManager(key).Verify(strings.TrimSpace(args[0]))
			if errors.Is(err, errors.ErrTokenExpired) {
				return fmt.Errorf("token expired")
			}
			if err != nil {
				return fmt.Errorf("token invalid")
			}

			out := map[string]interface{}{
				"sub":   claims.Subject,
				"roles": claims.Roles,
			}
			if claims.IssuedAt != nil {
				out["iat"] = claims.IssuedAt.Unix()
			}
			if claims.ExpiresAt != nil {
				out["exp"] = claims.ExpiresAt.Unix()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
