package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/replicator/internal/infrastructure/auth"
	"github.com/spf13/cobra"
)

// TokenOptions holds flags for the token command
type TokenOptions struct {
	*RootOptions
	Subject string
	Company string
	TTL     time.Duration
}

// NewTokenCommand creates the token command
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a host UI bridge",
		Long: `Sign a token with http.auth_secret. The host UI bridge sends it as
"Authorization: Bearer <token>" (or ?access_token= on the notification websocket).

Example:
  replicator token --subject bridge-1 --ttl 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := newStack(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(context.WithoutCancel(ctx)) }()

			if rt.cfg.HTTP.AuthSecret == "" {
				return WrapExitError(ExitCommandError, "cannot issue token", errors.New("http.auth_secret is not set"))
			}
			tokens, err := auth.NewTokenService(rt.cfg.HTTP.AuthSecret)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot issue token", err)
			}
			token, err := tokens.Issue(opts.Subject, opts.Company, opts.TTL)
			if err != nil {
				return WrapExitError(ExitCommandError, "cannot issue token", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", "", "bridge name (required)")
	cmd.Flags().StringVar(&opts.Company, "company", "", "company database the bridge serves")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime; 0 never expires")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
